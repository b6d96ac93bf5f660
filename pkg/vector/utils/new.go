package vectorutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/clinforge/fieldmap/pkg/vector"
	"github.com/clinforge/fieldmap/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string
	IndexPath    string
	Dimensions   uint
	Logger       *zap.Logger
}

func NewVectorDriver(o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "sqlitevec":
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     o.IndexPath,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
