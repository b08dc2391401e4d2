package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	shared "github.com/davicafu/csamarket/internal/shared/domain"
)

func TestShare_ApplyAndValidate(t *testing.T) {
	name := " Veggie box "
	price := int64(2500)
	freq := Frequency("WEEKLY")
	s := &Share{Available: true}
	s.Apply(ShareInput{Name: &name, Price: &price, Frequency: &freq})

	assert.Equal(t, "Veggie box", s.Name)
	assert.Equal(t, Weekly, s.Frequency)
	assert.True(t, s.Available)
	assert.NoError(t, s.Validate())
}

func TestShare_ValidateErrors(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)
	neg := -1

	tests := []struct {
		name  string
		share Share
	}{
		{"sin nombre", Share{Frequency: Weekly}},
		{"precio negativo", Share{Name: "x", Price: -1, Frequency: Weekly}},
		{"frecuencia desconocida", Share{Name: "x", Frequency: "daily"}},
		{"fin antes de inicio", Share{Name: "x", Frequency: Monthly, StartDate: &start, EndDate: &end}},
		{"máximo negativo", Share{Name: "x", Frequency: Monthly, MaxSubscribers: &neg}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.share.Validate(), ErrInvalidShare)
		})
	}
}

func TestShareCriteria(t *testing.T) {
	assert.Nil(t, FarmsCriteria{}.ToConditions())
	assert.Nil(t, AvailableCriteria{}.ToConditions())

	conds := shared.And(
		FarmsCriteria{FarmIDs: []string{"farm_1", "farm_2"}},
		AvailableCriteria{Available: func(b bool) *bool { return &b }(true)},
	).ToConditions()

	assert.Equal(t, []shared.Criterion{
		{Any: []shared.Criterion{
			{Field: FieldFarmID, Op: shared.OpEq, Value: "farm_1"},
			{Field: FieldFarmID, Op: shared.OpEq, Value: "farm_2"},
		}},
		{Field: FieldAvailable, Op: shared.OpEq, Value: true},
	}, conds)

	// con una sola granja el grupo OR se reduce a la condición
	assert.Equal(t, []shared.Criterion{{Field: FieldFarmID, Op: shared.OpEq, Value: "farm_1"}},
		FarmsCriteria{FarmIDs: []string{"farm_1"}}.ToConditions())
}
