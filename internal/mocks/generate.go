package mocks

//go:generate mockery --name RecordStore --srcpkg github.com/itad-lab/itad-metrics/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name SnapshotArchive --srcpkg github.com/itad-lab/itad-metrics/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
