package v1

import "strings"

type DeviceType string

const (
	DeviceLaptop     DeviceType = "Laptop"
	DeviceDesktop    DeviceType = "Desktop"
	DeviceServer     DeviceType = "Server"
	DeviceMonitor    DeviceType = "Monitor"
	DeviceTablet     DeviceType = "Tablet"
	DeviceSmartphone DeviceType = "Smartphone"
)

type Outcome string

const (
	OutcomeRefurbished Outcome = "Refurbished"
	OutcomeRecycled    Outcome = "Recycled"
	OutcomeFailed      Outcome = "Failed"
)

type CustomerSegment string

const (
	SegmentEnterprise CustomerSegment = "Enterprise"
	SegmentSMB        CustomerSegment = "SMB"
	SegmentEducation  CustomerSegment = "Education"
	SegmentGovernment CustomerSegment = "Government"
	SegmentConsumer   CustomerSegment = "Consumer"
)

type Certification string

const (
	CertificationR2        Certification = "R2"
	CertificationEStewards Certification = "eStewards"
	CertificationISO14001  Certification = "ISO14001"
	CertificationNone      Certification = "None"
)

// DefaultDeviceTypes lists the built-in device types in display order.
var DefaultDeviceTypes = []DeviceType{
	DeviceLaptop, DeviceDesktop, DeviceServer, DeviceMonitor, DeviceTablet, DeviceSmartphone,
}

// Segments lists every customer segment in display order.
var Segments = []CustomerSegment{
	SegmentEnterprise, SegmentSMB, SegmentEducation, SegmentGovernment, SegmentConsumer,
}

// Certifications lists every certification in display order.
var Certifications = []Certification{
	CertificationR2, CertificationEStewards, CertificationISO14001, CertificationNone,
}

// Outcomes lists every disposition outcome.
var Outcomes = []Outcome{OutcomeRefurbished, OutcomeRecycled, OutcomeFailed}

// certificationAliases maps alternate spellings seen in exported data.
var certificationAliases = map[string]Certification{
	"e-Stewards": CertificationEStewards,
}

// Enums is the set of enum values accepted at ingestion.
// Device types are extensible through configuration; the other enums are fixed.
type Enums struct {
	deviceTypes []DeviceType
	deviceSet   map[DeviceType]struct{}
}

// NewEnums returns the built-in enums plus the given extra device types.
// Blank and duplicate extras are ignored.
func NewEnums(extraDeviceTypes []string) *Enums {
	e := &Enums{deviceSet: make(map[DeviceType]struct{})}
	for _, d := range DefaultDeviceTypes {
		e.addDevice(d)
	}
	for _, raw := range extraDeviceTypes {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		e.addDevice(DeviceType(name))
	}
	return e
}

// DefaultEnums returns the built-in enums only.
func DefaultEnums() *Enums {
	return NewEnums(nil)
}

func (e *Enums) addDevice(d DeviceType) {
	if _, ok := e.deviceSet[d]; ok {
		return
	}
	e.deviceSet[d] = struct{}{}
	e.deviceTypes = append(e.deviceTypes, d)
}

// DeviceTypes returns the accepted device types in display order.
func (e *Enums) DeviceTypes() []DeviceType {
	out := make([]DeviceType, len(e.deviceTypes))
	copy(out, e.deviceTypes)
	return out
}

func (e *Enums) parseDeviceType(s string) (DeviceType, bool) {
	d := DeviceType(s)
	_, ok := e.deviceSet[d]
	return d, ok
}

func parseOutcome(s string) (Outcome, bool) {
	for _, o := range Outcomes {
		if string(o) == s {
			return o, true
		}
	}
	return "", false
}

func parseSegment(s string) (CustomerSegment, bool) {
	for _, seg := range Segments {
		if string(seg) == s {
			return seg, true
		}
	}
	return "", false
}

func parseCertification(s string) (Certification, bool) {
	if alias, ok := certificationAliases[s]; ok {
		return alias, true
	}
	for _, c := range Certifications {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}
