// Package obslog provides the centralized logging infrastructure for the
// prediction service. Error-level records are routed to stderr while all
// other levels go to stdout, so container log collectors can apply
// different handling per stream.
package obslog

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// streamSplitter routes logrus output to stdout or stderr by inspecting
// the formatted record for "level=error".
type streamSplitter struct{}

func (streamSplitter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=error")) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the package-global logger used by every core component.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(streamSplitter{})
}

// ForFamily returns a logger pre-annotated with the prediction family field.
func ForFamily(family string) *logrus.Entry {
	return Logger.WithField("family", family)
}

// ForRequest returns a logger pre-annotated with correlation and user identifiers.
func ForRequest(correlationID, userID string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{
		"correlation_id": correlationID,
		"user_id":        userID,
	})
}
