package latex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEngineVersion(t *testing.T) {
	cases := []struct {
		name     string
		output   string
		expected string
	}{
		{
			name:     "pdftex",
			output:   "pdfTeX 3.141592653-2.6-1.40.26 (TeX Live 2024)\nkpathsea version 6.4.0\n",
			expected: "3.141592653-2.6-1.40.26",
		},
		{
			name:     "xetex",
			output:   "XeTeX 3.141592653-2.6-0.999996 (TeX Live 2024)\n",
			expected: "3.141592653-2.6-0.999996",
		},
		{
			name:     "luatex",
			output:   "LuaHBTeX, Version 1.18.0 (TeX Live 2024)\n",
			expected: "1.18.0",
		},
		{
			name:     "unparseable falls back to first line",
			output:   "some engine\nmore text\n",
			expected: "some engine",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseEngineVersion(tc.output))
		})
	}
}

func TestDetectEngineVersionMissingBinary(t *testing.T) {
	assert.Equal(t, "", DetectEngineVersion(context.Background(), "definitely-not-a-tex-engine"))
}

func TestDetectEngineVersionFake(t *testing.T) {
	installFakeEngine(t, "fake-version", "#!/bin/sh\necho 'pdfTeX 3.141592653-2.6-1.40.26 (TeX Live 2024)'\n")
	assert.Equal(t, "3.141592653-2.6-1.40.26", DetectEngineVersion(context.Background(), "fake-version"))
}
