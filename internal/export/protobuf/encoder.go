// Package protobuf exports published snapshots in protobuf wire format.
// The schema is compiled at startup from the embedded snapshot.proto.
package protobuf

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bufbuild/protocompile"
	"github.com/itad-lab/itad-metrics/internal/core/metrics"
	"github.com/itad-lab/itad-metrics/internal/kpi"
	"github.com/itad-lab/itad-metrics/internal/snapshot"
	"github.com/itad-lab/itad-metrics/internal/trend"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ContentType is the media type of encoded snapshots.
const ContentType = "application/x-protobuf"

const protoFile = "itad/metrics/v1/snapshot.proto"

//go:embed snapshot.proto
var snapshotProto string

// Encoder turns snapshots into protobuf messages.
type Encoder struct {
	snapshot    protoreflect.MessageDescriptor
	kpis        protoreflect.MessageDescriptor
	trend       protoreflect.MessageDescriptor
	operational protoreflect.MessageDescriptor
	bucket      protoreflect.MessageDescriptor
}

// NewEncoder compiles the snapshot schema.
func NewEncoder(ctx context.Context) (*Encoder, error) {
	compiler := protocompile.Compiler{
		Resolver:       &singleFileResolver{fileName: protoFile, content: snapshotProto},
		SourceInfoMode: protocompile.SourceInfoNone,
	}

	files, err := compiler.Compile(ctx, protoFile)
	if err != nil {
		return nil, fmt.Errorf("failed to compile snapshot proto: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files compiled")
	}

	messages := files[0].Messages()
	e := &Encoder{}
	for name, target := range map[protoreflect.Name]*protoreflect.MessageDescriptor{
		"Snapshot":          &e.snapshot,
		"KPISet":            &e.kpis,
		"TrendPoint":        &e.trend,
		"OperationalMetric": &e.operational,
		"Bucket":            &e.bucket,
	} {
		md := messages.ByName(name)
		if md == nil {
			return nil, fmt.Errorf("snapshot proto is missing message %s", name)
		}
		*target = md
	}
	return e, nil
}

// ContentType returns the media type of Encode's output.
func (e *Encoder) ContentType() string { return ContentType }

// Descriptor returns the Snapshot message descriptor.
func (e *Encoder) Descriptor() protoreflect.MessageDescriptor { return e.snapshot }

// Encode marshals s deterministically: equal snapshots encode to equal bytes.
func (e *Encoder) Encode(s *snapshot.Snapshot) ([]byte, error) {
	msg := e.Message(s)
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot v%d: %w", s.Version, err)
	}
	return data, nil
}

// Decode parses bytes produced by Encode.
func (e *Encoder) Decode(data []byte) (*dynamicpb.Message, error) {
	msg := dynamicpb.NewMessage(e.snapshot)
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return msg, nil
}

// Message builds the dynamic Snapshot message for s.
func (e *Encoder) Message(s *snapshot.Snapshot) *dynamicpb.Message {
	msg := dynamicpb.NewMessage(e.snapshot)
	set(msg, "id", protoreflect.ValueOfString(s.ID))
	set(msg, "version", protoreflect.ValueOfInt64(s.Version))
	set(msg, "generated_at", protoreflect.ValueOfString(s.GeneratedAt.UTC().Format(time.RFC3339Nano)))
	set(msg, "record_version", protoreflect.ValueOfInt64(s.RecordVersion))
	set(msg, "kpis", protoreflect.ValueOfMessage(e.kpiMessage(s.KPIs)))

	trends := mutableList(msg, "trends")
	for _, tp := range s.Trends {
		trends.Append(protoreflect.ValueOfMessage(e.trendMessage(tp)))
	}

	set(msg, "environmental_growth", protoreflect.ValueOfMessage(e.trendMessage(s.EnvironmentalGrowth)))

	ops := mutableList(msg, "operational")
	for _, op := range s.Operational {
		ops.Append(protoreflect.ValueOfMessage(e.operationalMessage(op)))
	}

	if s.Rollups != nil {
		buckets := make([]metrics.RollupBucket, 0, len(s.Rollups.Buckets))
		for _, b := range s.Rollups.Buckets {
			buckets = append(buckets, b)
		}
		sort.Slice(buckets, func(i, j int) bool {
			return buckets[i].BucketKey.String() < buckets[j].BucketKey.String()
		})
		list := mutableList(msg, "buckets")
		for _, b := range buckets {
			list.Append(protoreflect.ValueOfMessage(e.bucketMessage(b)))
		}
	}
	return msg
}

func (e *Encoder) kpiMessage(k kpi.KPISet) *dynamicpb.Message {
	m := dynamicpb.NewMessage(e.kpis)
	setFloat(m, "total_revenue", k.TotalRevenue)
	setFloat(m, "carbon_saved", k.CarbonSaved)
	set(m, "assets_processed", protoreflect.ValueOfInt64(k.AssetsProcessed))
	setFloat(m, "success_rate", k.SuccessRate)
	setFloat(m, "avg_processing_time", k.AvgProcessingTime)
	setFloat(m, "customer_satisfaction", k.CustomerSatisfaction)
	setFloat(m, "circular_value", k.CircularValue)
	setFloat(m, "material_recovered", k.MaterialRecovered)
	setFloat(m, "recovery_rate", k.RecoveryRate)
	setFloat(m, "cars_off_road_equivalent", k.CarsOffRoadEquivalent)
	return m
}

func (e *Encoder) trendMessage(tp trend.TrendPoint) *dynamicpb.Message {
	m := dynamicpb.NewMessage(e.trend)
	set(m, "metric", protoreflect.ValueOfString(tp.Metric))
	set(m, "current_period", protoreflect.ValueOfString(tp.CurrentPeriod))
	setFloat(m, "current_value", tp.CurrentValue)
	set(m, "prior_period", protoreflect.ValueOfString(tp.PriorPeriod))
	if tp.PriorValue != nil {
		setFloat(m, "prior_value", *tp.PriorValue)
	}
	if tp.PercentChange != nil {
		setFloat(m, "percent_change", *tp.PercentChange)
	}
	set(m, "has_baseline", protoreflect.ValueOfBool(tp.HasBaseline))
	set(m, "polarity", protoreflect.ValueOfString(string(tp.Polarity)))
	return m
}

func (e *Encoder) operationalMessage(op kpi.OperationalMetric) *dynamicpb.Message {
	m := dynamicpb.NewMessage(e.operational)
	set(m, "name", protoreflect.ValueOfString(op.Name))
	set(m, "unit", protoreflect.ValueOfString(op.Unit))
	setFloat(m, "value", op.Value)
	set(m, "trend", protoreflect.ValueOfMessage(e.trendMessage(op.Trend)))
	return m
}

func (e *Encoder) bucketMessage(b metrics.RollupBucket) *dynamicpb.Message {
	m := dynamicpb.NewMessage(e.bucket)
	set(m, "dimension", protoreflect.ValueOfString(string(b.Dimension)))
	set(m, "key", protoreflect.ValueOfString(b.Key))
	set(m, "granularity", protoreflect.ValueOfString(string(b.Granularity)))
	set(m, "period", protoreflect.ValueOfString(string(b.Period)))
	set(m, "count", protoreflect.ValueOfInt64(b.Count))
	set(m, "success_count", protoreflect.ValueOfInt64(b.SuccessCount))
	setFloat(m, "revenue", b.RevenueSum)
	setFloat(m, "carbon_saved", b.CarbonSavedSum)
	setFloat(m, "material_recovered", b.MaterialRecoveredSum)
	setFloat(m, "success_rate", b.SuccessRate())
	return m
}

func set(m *dynamicpb.Message, field string, v protoreflect.Value) {
	m.Set(m.Descriptor().Fields().ByName(protoreflect.Name(field)), v)
}

func setFloat(m *dynamicpb.Message, field string, d decimal.Decimal) {
	set(m, field, protoreflect.ValueOfFloat64(d.InexactFloat64()))
}

func mutableList(m *dynamicpb.Message, field string) protoreflect.List {
	return m.Mutable(m.Descriptor().Fields().ByName(protoreflect.Name(field))).List()
}

// singleFileResolver provides the embedded proto content for compilation.
type singleFileResolver struct {
	fileName string
	content  string
}

func (r *singleFileResolver) FindFileByPath(path string) (protocompile.SearchResult, error) {
	if path == r.fileName {
		return protocompile.SearchResult{
			Source: strings.NewReader(r.content),
		}, nil
	}
	return protocompile.SearchResult{}, fmt.Errorf("file not found: %s", path)
}
