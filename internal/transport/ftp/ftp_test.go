package ftp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/depositcore/engine/internal/config"
	"github.com/depositcore/engine/internal/transport"
)

func TestExpandDateToken_SubstitutesUTCDate(t *testing.T) {
	now := time.Date(2026, 7, 31, 23, 0, 0, 0, time.FixedZone("UTC-5", -5*3600))

	got := expandDateToken("/incoming/%s", now)
	assert.Equal(t, "/incoming/2026-08-01", got)
}

func TestExpandDateToken_NoTokenLeavesTemplateUnchanged(t *testing.T) {
	got := expandDateToken("/incoming/fixed", time.Now())
	assert.Equal(t, "/incoming/fixed", got)
}

func TestSessionSend_TaintedSessionRejectsImmediately(t *testing.T) {
	s := &session{tainted: true}

	_, err := s.Send(context.Background(), nil, transport.Hints{})
	assert.Error(t, err)
}

func TestValidateFTPSettings_RejectsActiveMode(t *testing.T) {
	err := validateFTPSettings(config.FTPSettings{UsePassive: false})
	assert.Error(t, err)
}

func TestValidateFTPSettings_RejectsUnsupportedTransferMode(t *testing.T) {
	err := validateFTPSettings(config.FTPSettings{UsePassive: true, TransferMode: "block"})
	assert.Error(t, err)
}

func TestValidateFTPSettings_AcceptsPassiveStream(t *testing.T) {
	err := validateFTPSettings(config.FTPSettings{UsePassive: true, TransferMode: "stream"})
	assert.NoError(t, err)
}
