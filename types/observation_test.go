package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObservationValidate(t *testing.T) {
	tests := []struct {
		name    string
		obs     Observation
		wantErr bool
	}{
		{
			name: "valid text",
			obs:  Observation{Modality: ModalityText, Payload: []byte("hello"), SourceConfidence: 0.9},
		},
		{
			name:    "missing modality",
			obs:     Observation{Payload: []byte("hello")},
			wantErr: true,
		},
		{
			name:    "unknown modality",
			obs:     Observation{Modality: "audio", Payload: []byte{1}},
			wantErr: true,
		},
		{
			name:    "empty payload",
			obs:     Observation{Modality: ModalityImage},
			wantErr: true,
		},
		{
			name:    "confidence out of range",
			obs:     Observation{Modality: ModalityGraph, Payload: []byte{1}, SourceConfidence: 1.5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.obs.Validate()
			if tt.wantErr {
				require.True(t, IsErrorCode(err, ErrValidation))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestObservationSalience(t *testing.T) {
	low := Observation{Modality: ModalityText, Payload: []byte("x")}
	high := Observation{Modality: ModalityText, Payload: []byte("x"), SourceConfidence: 1, EmbeddingConfidence: 1}

	require.InDelta(t, 0.5, low.Salience(), 1e-9)
	require.Equal(t, 1.0, high.Salience())
	require.Greater(t, high.Salience(), low.Salience())
}
