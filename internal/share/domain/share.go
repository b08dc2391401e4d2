package domain

import (
	"fmt"
	"strings"
	"time"
)

// Frequency es la periodicidad de entrega de una cuota CSA.
type Frequency string

const (
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
)

// Valid indica si la frecuencia es una de las admitidas.
func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Biweekly, Monthly:
		return true
	}
	return false
}

// Share es una cuota CSA que ofrece una granja.
type Share struct {
	ID                 string     `json:"id"`
	FarmID             string     `json:"farmId"`
	Name               string     `json:"name"`
	Description        string     `json:"description,omitempty"`
	Price              int64      `json:"price"` // en céntimos
	Frequency          Frequency  `json:"frequency"`
	Available          bool       `json:"available"`
	StartDate          *time.Time `json:"startDate,omitempty"`
	EndDate            *time.Time `json:"endDate,omitempty"`
	MaxSubscribers     *int       `json:"maxSubscribers,omitempty"`
	CurrentSubscribers int        `json:"currentSubscribers"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// PartitionKey agrupa los eventos de las cuotas por granja.
func (s *Share) PartitionKey() string {
	return s.FarmID
}

// ShareInput son los campos editables. En una actualización los nil no cambian.
type ShareInput struct {
	Name           *string
	Description    *string
	Price          *int64
	Frequency      *Frequency
	Available      *bool
	StartDate      *time.Time
	EndDate        *time.Time
	MaxSubscribers *int
}

// Apply copia los campos presentes sobre la cuota.
func (s *Share) Apply(in ShareInput) {
	if in.Name != nil {
		s.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		s.Description = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		s.Price = *in.Price
	}
	if in.Frequency != nil {
		s.Frequency = Frequency(strings.ToLower(string(*in.Frequency)))
	}
	if in.Available != nil {
		s.Available = *in.Available
	}
	if in.StartDate != nil {
		t := in.StartDate.UTC()
		s.StartDate = &t
	}
	if in.EndDate != nil {
		t := in.EndDate.UTC()
		s.EndDate = &t
	}
	if in.MaxSubscribers != nil {
		m := *in.MaxSubscribers
		s.MaxSubscribers = &m
	}
}

// Validate comprueba los invariantes de la cuota.
func (s *Share) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidShare)
	case s.Price < 0:
		return fmt.Errorf("%w: price must be non-negative", ErrInvalidShare)
	case !s.Frequency.Valid():
		return fmt.Errorf("%w: frequency must be weekly, biweekly or monthly", ErrInvalidShare)
	case s.StartDate != nil && s.EndDate != nil && s.EndDate.Before(*s.StartDate):
		return fmt.Errorf("%w: endDate before startDate", ErrInvalidShare)
	case s.MaxSubscribers != nil && *s.MaxSubscribers < 0:
		return fmt.Errorf("%w: maxSubscribers must be non-negative", ErrInvalidShare)
	}
	return nil
}
