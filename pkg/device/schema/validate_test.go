package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/smarttel/pkg/seestar"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestValidateCommand_NoParamsMethod(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateCommand(seestar.MethodGetDeviceState, nil))
	assert.Error(t, v.ValidateCommand(seestar.MethodGetDeviceState, decode(t, `{"x": 1}`)))
}

func TestValidateCommand_StartStack(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateCommand(seestar.MethodIscopeStartStack, decode(t, `{"restart": true}`)))
	assert.NoError(t, v.ValidateCommand(seestar.MethodIscopeStartStack, nil))
	assert.Error(t, v.ValidateCommand(seestar.MethodIscopeStartStack, decode(t, `{"restart": "yes"}`)))
	assert.Error(t, v.ValidateCommand(seestar.MethodIscopeStartStack, decode(t, `{"unknown": true}`)))
}

func TestValidateCommand_StopViewStage(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateCommand(seestar.MethodIscopeStopView, decode(t, `{"stage": "AutoGoto"}`)))
	assert.Error(t, v.ValidateCommand(seestar.MethodIscopeStopView, decode(t, `{"stage": "Nope"}`)))
}

func TestValidateCommand_SetControlValue(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateCommand(seestar.MethodSetControlValue, decode(t, `["gain", 80]`)))
	assert.Error(t, v.ValidateCommand(seestar.MethodSetControlValue, decode(t, `["gain"]`)))
	assert.Error(t, v.ValidateCommand(seestar.MethodSetControlValue, decode(t, `[80, "gain"]`)))
}

func TestValidateCommand_SetSetting(t *testing.T) {
	v := NewValidator()

	ok := `{"exp_ms": {"stack_l": 10000}, "stack_dither": {"pix": 50, "interval": 5, "enable": true}}`
	assert.NoError(t, v.ValidateCommand(seestar.MethodSetSetting, decode(t, ok)))

	assert.Error(t, v.ValidateCommand(seestar.MethodSetSetting, decode(t, `{"ae_bri_percent": 150}`)))
	assert.Error(t, v.ValidateCommand(seestar.MethodSetSetting, decode(t, `{"exp_ms": {"stack_l": -1}}`)))
}

func TestValidateCommand_TrackState(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateCommand(seestar.MethodScopeSetTrackState, true))
	assert.Error(t, v.ValidateCommand(seestar.MethodScopeSetTrackState, nil))
}

func TestValidateCommand_UnknownMethod(t *testing.T) {
	v := NewValidator()

	err := v.ValidateCommand("scope_teleport", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, seestar.ErrUnknownMethod))
}

func TestValidate_EmptySchema(t *testing.T) {
	v := NewValidator()

	// Empty schema means no validation
	assert.NoError(t, v.Validate(json.RawMessage(`{}`), map[string]any{"anything": "goes"}))
	assert.NoError(t, v.Validate(nil, map[string]any{"anything": "goes"}))
}

func TestValidate_CachesSchema(t *testing.T) {
	v := NewValidator()

	require.NoError(t, v.ValidateCommand(seestar.MethodIscopeStartStack, decode(t, `{"restart": true}`)))
	require.NoError(t, v.ValidateCommand(seestar.MethodIscopeStartStack, decode(t, `{"restart": false}`)))
	require.NoError(t, v.ValidateCommand(seestar.MethodGetTime, nil))
	require.NoError(t, v.ValidateCommand(seestar.MethodGetViewState, nil))

	v.mu.RLock()
	cacheSize := len(v.cache)
	v.mu.RUnlock()
	// get_time and get_view_state share the no-params schema
	assert.Equal(t, 2, cacheSize)
}
