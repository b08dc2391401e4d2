// Package farms adapta el servicio de granjas al puerto FarmDirectory de las cuotas.
package farms

import (
	"context"
	"errors"

	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
	shareDomain "github.com/davicafu/csamarket/internal/share/domain"
)

// FarmReader es lo que el directorio necesita del servicio de granjas.
type FarmReader interface {
	GetFarm(ctx context.Context, id string) (*farmDomain.Farm, error)
	ListMyFarms(ctx context.Context, userID string) ([]*farmDomain.Farm, error)
}

type Directory struct {
	farms FarmReader
}

func NewDirectory(farms FarmReader) *Directory {
	return &Directory{farms: farms}
}

var _ shareDomain.FarmDirectory = (*Directory)(nil)

func (d *Directory) OwnerOf(ctx context.Context, farmID string) (string, error) {
	farm, err := d.farms.GetFarm(ctx, farmID)
	if err != nil {
		if errors.Is(err, farmDomain.ErrFarmNotFound) {
			return "", shareDomain.ErrFarmNotFound
		}
		return "", err
	}
	return farm.UserID, nil
}

func (d *Directory) FarmIDsOf(ctx context.Context, userID string) ([]string, error) {
	farms, err := d.farms.ListMyFarms(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(farms))
	for _, f := range farms {
		ids = append(ids, f.ID)
	}
	return ids, nil
}
