package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetup(t *testing.T) {
	defer Setup(&bytes.Buffer{}, "info", false)

	var buf bytes.Buffer
	Setup(&buf, "warn", true)

	logrus.Info("hidden")
	logrus.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestSetupUnknownLevel(t *testing.T) {
	defer Setup(&bytes.Buffer{}, "info", false)

	Setup(&bytes.Buffer{}, "chatty", false)
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestOrStandard(t *testing.T) {
	assert.Equal(t, logrus.StandardLogger(), OrStandard(nil))

	l := logrus.New()
	assert.Equal(t, l, OrStandard(l))
}
