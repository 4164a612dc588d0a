package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewParsesLevel(t *testing.T) {
	require.Equal(t, logrus.DebugLevel, New("debug", "").GetLevel())
	require.Equal(t, logrus.InfoLevel, New("nonsense", "").GetLevel())
}

func TestBookingLoggerWritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "booking.log")
	l := NewBookingLogger(file)
	l.WithFields(logrus.Fields{"booking_id": 12}).Info("booking confirmed")

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(raw), "booking confirmed")
	require.Contains(t, string(raw), "booking_id=12")
}
