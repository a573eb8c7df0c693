package refcode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Format(t *testing.T) {
	code := New("PAY", 8)

	assert.Len(t, code, len("PAY")+6+8)
	assert.Contains(t, code, time.Now().Format("060102"))
	assert.Regexp(t, `^PAY\d{6}[A-Z0-9]{8}$`, code)
}

func TestNew_BranchPrefix(t *testing.T) {
	code := New("SUBDT", 6)

	assert.Regexp(t, `^SUBDT\d{6}[A-Z0-9]{6}$`, code)
}

func TestNew_Varies(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[New("SUB", 6)] = true
	}
	// 50 draws from 36^6 should essentially never collide.
	assert.Greater(t, len(seen), 45)
}
