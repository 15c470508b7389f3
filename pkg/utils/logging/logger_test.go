package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/m-mizutani/fitplan/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

func TestLevels(t *testing.T) {
	testCases := []struct {
		level   string
		visible []string
		hidden  []string
	}{
		{level: "debug", visible: []string{"debug-msg", "info-msg", "warn-msg", "error-msg"}},
		{level: "info", visible: []string{"info-msg", "warn-msg", "error-msg"}, hidden: []string{"debug-msg"}},
		{level: "warning", visible: []string{"warn-msg", "error-msg"}, hidden: []string{"debug-msg", "info-msg"}},
		{level: "ERROR", visible: []string{"error-msg"}, hidden: []string{"debug-msg", "info-msg", "warn-msg"}},
		{level: "bogus", visible: []string{"info-msg"}, hidden: []string{"debug-msg"}},
	}

	for _, format := range []logging.Format{logging.FormatConsole, logging.FormatJSON} {
		for _, tc := range testCases {
			t.Run(string(format)+"/"+tc.level, func(t *testing.T) {
				buf := &bytes.Buffer{}
				logger := logging.NewWithFormat(tc.level, format, buf)

				logger.Debug("debug-msg")
				logger.Info("info-msg")
				logger.Warn("warn-msg")
				logger.Error("error-msg")

				for _, msg := range tc.visible {
					gt.S(t, buf.String()).Contains(msg)
				}
				for _, msg := range tc.hidden {
					gt.S(t, buf.String()).NotContains(msg)
				}
			})
		}
	}
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.NewWithFormat("info", logging.FormatJSON, buf)
	logger.Info("synced embeddings", "user_id", "u1", "plans", 2)

	var line map[string]any
	gt.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	gt.Equal(t, line["msg"], any("synced embeddings"))
	gt.Equal(t, line["user_id"], any("u1"))
	gt.Equal(t, line["plans"], any(float64(2)))
}

func TestParseFormat(t *testing.T) {
	for input, expected := range map[string]logging.Format{
		"":        logging.FormatConsole,
		"console": logging.FormatConsole,
		"JSON":    logging.FormatJSON,
	} {
		f, err := logging.ParseFormat(input)
		gt.NoError(t, err)
		gt.Equal(t, f, expected)
	}

	_, err := logging.ParseFormat("xml")
	gt.Error(t, err)
}

func TestContextLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("info", buf).With("component", "rag")

	ctx := logging.With(context.Background(), logger)
	gt.Equal(t, logging.From(ctx), logger)

	logging.From(ctx).Info("context message")
	gt.S(t, buf.String()).Contains("context message")
	gt.S(t, buf.String()).Contains("rag")
}

func TestFromFallsBackToDefault(t *testing.T) {
	original := logging.Default()
	defer logging.SetDefault(original)

	buf := &bytes.Buffer{}
	custom := logging.New("warn", buf)
	logging.SetDefault(custom)

	gt.Equal(t, logging.Default(), custom)
	gt.Equal(t, logging.From(context.Background()), custom)

	logging.From(context.Background()).Warn("warning from default")
	gt.S(t, buf.String()).Contains("warning from default")
}
