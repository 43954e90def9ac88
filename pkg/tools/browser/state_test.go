package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/redpen-ai/redpen/pkg/types"
)

func TestMachineGuardOrdering(t *testing.T) {
	m := NewMachine()

	assert.Error(t, m.Guard(ActionLogin), "login needs a connection")
	assert.Error(t, m.Guard(ActionPublish))
	assert.Error(t, m.Guard(ActionConfirm))
	assert.NoError(t, m.Guard(ActionClose))

	assert.NoError(t, m.Guard(ActionConnect))
	m.Apply(ActionConnect)
	assert.NoError(t, m.Guard(ActionLogin))
	assert.Error(t, m.Guard(ActionPublish), "publish needs authentication")

	m.Apply(ActionLogin)
	assert.NoError(t, m.Guard(ActionPublish))
	assert.Error(t, m.Guard(ActionConfirm), "confirm needs a submission")

	m.Apply(ActionPublish)
	err := m.Guard(ActionPublish)
	assert.Error(t, err)
	assert.Equal(t, types.ErrKindAlreadySubmitted, types.KindOf(err))

	m.Apply(ActionClose)
	assert.Equal(t, StateDisconnected, m.State())
}

func TestMachineConfirmKeepsState(t *testing.T) {
	m := NewMachine()
	m.Apply(ActionConnect)
	m.Apply(ActionLogin)
	m.Apply(ActionPublish)

	assert.NoError(t, m.Guard(ActionConfirm))
	m.Apply(ActionConfirm)
	assert.Equal(t, StateSubmitted, m.State())
}
