package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeKeywords(t *testing.T) {
	got := NormalizeKeywords([]string{"  Luckin ", "蜜雪冰城", "", "LUCKIN", "   ", "ＫＦＣ", "kfc"})
	assert.Equal(t, []string{"luckin", "蜜雪冰城", "kfc"}, got)
}

func TestNormalizeKeywords_Empty(t *testing.T) {
	assert.Empty(t, NormalizeKeywords(nil))
	assert.Empty(t, NormalizeKeywords([]string{" ", "\t"}))
}

func TestParseKeywordList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"ascii comma", "a,b", []string{"a", "b"}},
		{"full-width comma", "蜜雪冰城，瑞幸咖啡", []string{"蜜雪冰城", "瑞幸咖啡"}},
		{"mixed separators", "a; b；c  d、e", []string{"a", "b", "c", "d", "e"}},
		{"empty pieces", ",,a,,", []string{"a"}},
		{"blank", "   ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKeywordList(tt.in))
		})
	}
}

func TestKeywordSetHash_OrderCaseWhitespaceInsensitive(t *testing.T) {
	a := KeywordSetHash("上海市", []string{"B", "a"})
	b := KeywordSetHash("上海市", []string{"a", "b", " B"})
	c := KeywordSetHash("上海市", []string{" A ", "b"})

	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
	assert.Len(t, a, 40)
}

func TestKeywordSetHash_DistinguishesCityAndSet(t *testing.T) {
	base := KeywordSetHash("上海市", []string{"a", "b"})

	assert.NotEqual(t, base, KeywordSetHash("杭州市", []string{"a", "b"}))
	assert.NotEqual(t, base, KeywordSetHash("上海市", []string{"a"}))
	assert.NotEqual(t, base, KeywordSetHash("上海市", []string{"ab"}))
}

func TestSourceOf(t *testing.T) {
	assert.Equal(t, SourceCache, SourceOf(3, 0))
	assert.Equal(t, SourceCache, SourceOf(0, 0))
	assert.Equal(t, SourceNetwork, SourceOf(0, 2))
	assert.Equal(t, SourceMixed, SourceOf(1, 1))
}
