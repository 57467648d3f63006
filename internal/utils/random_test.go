package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRandomID(t *testing.T) {
	id := GenerateRandomID(8, 4)
	assert.Len(t, id, 12)
	// 前段字母数字混合，后段纯数字
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9]{8}[0-9]{4}$`), id)
}

func TestGenerateRandomSeriesID(t *testing.T) {
	id := GenerateRandomSeriesID()
	assert.Regexp(t, regexp.MustCompile(`^47[0-9]{8}$`), id)
}

func TestGenerateRandomTime24(t *testing.T) {
	for i := 0; i < 20; i++ {
		assert.Regexp(t, regexp.MustCompile(`^(0[89]|1[0-9]|2[01]):(00|15|30|45)$`), GenerateRandomTime24())
	}
}
