package invoice

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLines(t *testing.T) {
	inv := Invoice{
		CourseTitle: "Go desde cero",
		Amount:      1500,
		Currency:    "ARS",
		PaymentID:   "123",
		IssuedAt:    time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, []string{
		"Curso: Go desde cero",
		"Importe: $1500.00 ARS",
		"Pago ID: 123",
		"Fecha: 09/03/2024",
	}, Lines(inv))
}

func TestRender(t *testing.T) {
	out, err := Render(Invoice{
		CourseTitle: "Programación en Go",
		Amount:      99.5,
		PaymentID:   "mp-1",
		IssuedAt:    time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, len(out), 500)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "Factura-987.pdf", Filename("987"))
}
