package http

import (
	"bytes"
	"encoding/json"

	farmDomain "github.com/davicafu/csamarket/internal/farm/domain"
)

// StringList acepta tanto una cadena como una lista de cadenas. Una cadena
// vacía es una lista vacía.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = StringList{}
			return nil
		}
		*l = StringList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	if list == nil {
		list = []string{}
	}
	*l = list
	return nil
}

// farmRequest es el cuerpo de alta y de edición. En la edición solo se
// aplican los campos presentes.
type farmRequest struct {
	Name            *string    `json:"name"`
	Description     *string    `json:"description"`
	Address         *string    `json:"address"`
	City            *string    `json:"city"`
	State           *string    `json:"state"`
	ZipCode         *string    `json:"zipCode"`
	Latitude        *string    `json:"latitude"`
	Longitude       *string    `json:"longitude"`
	ImageURLs       StringList `json:"imageUrls"`
	Categories      StringList `json:"categories"`
	DeliveryOptions StringList `json:"deliveryOptions"`
	PricePerWeek    *float64   `json:"pricePerWeek" binding:"omitempty,gte=0"`
}

func (r farmRequest) toInput() farmDomain.FarmInput {
	return farmDomain.FarmInput{
		Name:            r.Name,
		Description:     r.Description,
		Address:         r.Address,
		City:            r.City,
		State:           r.State,
		ZipCode:         r.ZipCode,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		ImageURLs:       r.ImageURLs,
		Categories:      r.Categories,
		DeliveryOptions: r.DeliveryOptions,
		PricePerWeek:    r.PricePerWeek,
	}
}

// listFarmsRequest son los query params del listado público.
type listFarmsRequest struct {
	Cursor   string `form:"cursor"`
	Limit    *int   `form:"limit" binding:"omitempty,min=1,max=50"`
	Search   string `form:"search"`
	Category string `form:"category"`
	Price    string `form:"price"`
	Delivery string `form:"delivery"`
	Rating   string `form:"rating"`
	Sort     string `form:"sort"`
	Near     string `form:"near"`
}

type topSearchesRequest struct {
	Days  int `form:"days" binding:"omitempty,min=1,max=90"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}
