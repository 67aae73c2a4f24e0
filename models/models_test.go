package models_test

import (
	"testing"

	"agrotrade/models"

	"github.com/stretchr/testify/require"
)

func TestOrderStatusNext(t *testing.T) {
	st := models.OrderConfirmed
	var seen []models.OrderStatus
	for {
		next, ok := st.Next()
		if !ok {
			break
		}
		seen = append(seen, next)
		st = next
	}
	require.Equal(t, []models.OrderStatus{
		models.OrderPaid, models.OrderInspected, models.OrderShipped, models.OrderDelivered,
	}, seen)
	require.True(t, st.Terminal())

	_, ok := models.OrderStatus("LOST").Next()
	require.False(t, ok)
}

func TestValidIncoterm(t *testing.T) {
	require.True(t, models.ValidIncoterm("CIF"))
	require.True(t, models.ValidIncoterm(models.IncotermEXW))
	require.False(t, models.ValidIncoterm("DDP"))
	require.False(t, models.ValidIncoterm("cif"))
}

func TestSupplierHasSpecialty(t *testing.T) {
	s := models.Supplier{Specialties: []string{"cashews", " Sesame "}}
	require.True(t, s.HasSpecialty("CASHEWS"))
	require.True(t, s.HasSpecialty("sesame"))
	require.False(t, s.HasSpecialty("COCOA"))
}

func TestRFQStatusTerminal(t *testing.T) {
	require.False(t, models.RFQOpen.Terminal())
	require.True(t, models.RFQAwarded.Terminal())
	require.True(t, models.RFQCancelled.Terminal())
}
