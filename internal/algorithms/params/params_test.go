package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloat(t *testing.T) {
	p := map[string]interface{}{"a": 2.5, "b": 3, "c": "x"}

	assert.Equal(t, 2.5, Float(p, "a", 0))
	assert.Equal(t, 3.0, Float(p, "b", 0))
	assert.Equal(t, 1.0, Float(p, "c", 1))
	assert.Equal(t, 7.0, Float(p, "missing", 7))
}

func TestInt(t *testing.T) {
	p := map[string]interface{}{"a": 4, "b": 8.0, "c": 8.5}

	assert.Equal(t, 4, Int(p, "a", 0))
	assert.Equal(t, 8, Int(p, "b", 0))
	assert.Equal(t, -1, Int(p, "c", -1))
}

func TestBool(t *testing.T) {
	p := map[string]interface{}{"on": true, "bad": 1}

	assert.True(t, Bool(p, "on", false))
	assert.True(t, Bool(p, "bad", true))
	assert.False(t, Bool(p, "missing", false))
}

func TestCheckType(t *testing.T) {
	p := map[string]interface{}{"f": 1, "i": 2.5, "b": "yes"}

	assert.NoError(t, CheckType(p, "f", "float"))
	assert.Error(t, CheckType(p, "i", "int"))
	assert.Error(t, CheckType(p, "b", "bool"))
	assert.NoError(t, CheckType(p, "missing", "bool"))
}

func TestCopy(t *testing.T) {
	p := map[string]interface{}{"a": 1}
	c := Copy(p)
	c["a"] = 2

	assert.Equal(t, 1, p["a"])
}
