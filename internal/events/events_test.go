package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNopPublisher(t *testing.T) {
	t.Parallel()

	var p Publisher = Nop{}
	require.NoError(t, p.PublishCompleted(context.Background(), ApplicationCompleted{Phone: "51999"}))
	p.Close()
}

func TestApplicationCompletedWireNames(t *testing.T) {
	t.Parallel()

	ev := ApplicationCompleted{
		ApplicationID:      "id-1",
		Phone:              "51999",
		PositionID:         8,
		Eligible:           true,
		InterviewDate:      "2026-10-20",
		InterviewConfirmed: true,
		CompletedAt:        time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"application_id": "id-1",
		"phone_number": "51999",
		"puesto_id": 8,
		"es_apto": true,
		"fecha_entrevista": "2026-10-20",
		"confirmacion_asistencia": true,
		"completed_at": "2026-10-19T09:00:00Z"
	}`, string(data))
}
