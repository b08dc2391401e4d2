package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mmcloughlin/geohash"
)

// GeohashPrecision es la longitud del geohash que se guarda (~150 m de celda).
const GeohashPrecision = 7

// Farm representa una granja publicada en el marketplace.
type Farm struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Address         string    `json:"address,omitempty"`
	City            string    `json:"city,omitempty"`
	State           string    `json:"state,omitempty"`
	ZipCode         string    `json:"zipCode,omitempty"`
	Latitude        string    `json:"latitude,omitempty"`
	Longitude       string    `json:"longitude,omitempty"`
	Geohash         string    `json:"geohash,omitempty"`
	ImageURLs       []string  `json:"imageUrls"`
	Categories      []string  `json:"categories"`
	DeliveryOptions []string  `json:"deliveryOptions"`
	PricePerWeek    *float64  `json:"pricePerWeek,omitempty"`
	Rating          *float64  `json:"rating,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// PartitionKey mantiene los eventos de una misma granja en orden.
func (f *Farm) PartitionKey() string {
	return f.ID
}

// EffectiveRating devuelve la valoración usada al filtrar y ordenar.
func (f *Farm) EffectiveRating() float64 {
	if f.Rating == nil {
		return DefaultRating
	}
	return *f.Rating
}

// PriceRank devuelve el precio usado al ordenar; las granjas sin precio van al final.
func (f *Farm) PriceRank() float64 {
	if f.PricePerWeek == nil {
		return MissingPriceRank
	}
	return *f.PricePerWeek
}

// RefreshGeohash recalcula el geohash a partir de latitud y longitud.
// Si alguna de las dos no es un número válido, el geohash queda vacío.
func (f *Farm) RefreshGeohash() {
	f.Geohash = ""
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(f.Latitude), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(f.Longitude), 64)
	if errLat != nil || errLng != nil {
		return
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return
	}
	f.Geohash = geohash.EncodeWithPrecision(lat, lng, GeohashPrecision)
}

// Normalize limpia las listas antes de guardar: sin nil, sin vacíos, sin espacios.
func (f *Farm) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.State = strings.TrimSpace(f.State)
	f.ImageURLs = cleanList(f.ImageURLs)
	f.Categories = cleanList(f.Categories)
	f.DeliveryOptions = cleanList(f.DeliveryOptions)
	f.RefreshGeohash()
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// FarmInput son los campos editables por el dueño. En una actualización los
// campos nil (o listas nil) se dejan como estaban. La valoración no es editable.
type FarmInput struct {
	Name            *string
	Description     *string
	Address         *string
	City            *string
	State           *string
	ZipCode         *string
	Latitude        *string
	Longitude       *string
	ImageURLs       []string
	Categories      []string
	DeliveryOptions []string
	PricePerWeek    *float64
}

// Apply copia sobre la granja los campos presentes y la normaliza.
func (f *Farm) Apply(in FarmInput) {
	setString(&f.Name, in.Name)
	setString(&f.Description, in.Description)
	setString(&f.Address, in.Address)
	setString(&f.City, in.City)
	setString(&f.State, in.State)
	setString(&f.ZipCode, in.ZipCode)
	setString(&f.Latitude, in.Latitude)
	setString(&f.Longitude, in.Longitude)
	if in.ImageURLs != nil {
		f.ImageURLs = in.ImageURLs
	}
	if in.Categories != nil {
		f.Categories = in.Categories
	}
	if in.DeliveryOptions != nil {
		f.DeliveryOptions = in.DeliveryOptions
	}
	if in.PricePerWeek != nil {
		p := *in.PricePerWeek
		f.PricePerWeek = &p
	}
	f.Normalize()
}

// Validate comprueba lo mínimo para poder publicar la granja.
func (f *Farm) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidFarm)
	}
	if f.PricePerWeek != nil && (*f.PricePerWeek < 0 || math.IsNaN(*f.PricePerWeek) || math.IsInf(*f.PricePerWeek, 0)) {
		return fmt.Errorf("%w: pricePerWeek must be a non-negative number", ErrInvalidFarm)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
