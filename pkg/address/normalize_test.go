package address

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "postal code and floor suffix",
			input: "100臺北市中正區重慶南路一段122號3樓",
			want:  "臺北市中正區重慶南路一段122號",
		},
		{
			name:  "legacy spelling",
			input: "台北市大安區復興南路二段100號",
			want:  "臺北市大安區復興南路二段100號",
		},
		{
			name:  "province collapses",
			input: "台灣省新北市樹林區中山路1段8號",
			want:  "臺灣新北市樹林區中山路1段8號",
		},
		{
			name:  "full-width digits and spaces",
			input: "　２３８新北市樹林區保安街１段５號　",
			want:  "新北市樹林區保安街1段5號",
		},
		{
			name:  "commas and enumeration marks",
			input: "新北市，樹林區、中正路 99號, 2F",
			want:  "新北市樹林區中正路99號",
		},
		{
			name:  "sub-number kept",
			input: "臺中市西區民生路8號之3(5樓)",
			want:  "臺中市西區民生路8號之3",
		},
		{
			name:  "dash variants",
			input: "高雄市苓雅區三多路12號－1",
			want:  "高雄市苓雅區三多路12號-1",
		},
		{
			name:  "english road suffix",
			input: "No. 8 Zhongshan Road",
			want:  "No.8Zhongshan路",
		},
		{
			name:  "no building number",
			input: "新北市樹林區",
			want:  "新北市樹林區",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"100臺北市中正區重慶南路一段122號3樓",
		"　２３８新北市樹林區保安街１段５號　",
		"台灣省新北市樹林區中山路1段8號之2 Room 5",
		"新北市，樹林區、中正路 99號, 2F",
		", 238 新北市樹林區",
		"No. 8 Zhongshan Road, Shulin District",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_OutputShape(t *testing.T) {
	inputs := []string{
		"10048臺北市中正區重慶南路一段122號",
		"２３８新北市樹林區保安街１段５號",
		", 238 新北市樹林區",
		"新北市，樹林區、中正路 99號, 2F",
		"ＡＢＣ　Ｒｏａｄ，１號",
	}

	for _, in := range inputs {
		out := Normalize(in)
		assert.NotContains(t, out, ",", "input %q", in)
		assert.NotContains(t, out, "，", "input %q", in)
		assert.False(t, rePostalPrefix.MatchString(out), "leading postal digits in %q", out)
		for _, r := range out {
			assert.False(t, r >= 0xFF01 && r <= 0xFF5E, "full-width rune %q in %q", r, out)
		}
	}
}

func TestVariants(t *testing.T) {
	key := "臺北市中正區復興路100號"

	variants := Variants(key, DefaultVariantSpan)
	require.Len(t, variants, 2*DefaultVariantSpan+1)
	assert.Equal(t, "臺北市中正區復興路97號", variants[0])
	assert.Equal(t, key, variants[DefaultVariantSpan])
	assert.Equal(t, "臺北市中正區復興路103號", variants[len(variants)-1])

	assert.Len(t, Variants(key, 1), 3)
	assert.Equal(t, []string{key}, Variants(key, 0))
}

func TestVariants_NoBuildingNumber(t *testing.T) {
	assert.Equal(t, []string{"新北市樹林區"}, Variants("新北市樹林區", 3))
	assert.Equal(t, []string{""}, Variants("", 3))
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     []string
	}{
		{
			name:     "english district",
			location: "Shulin District",
			want:     []string{"Shulin District"},
		},
		{
			name:     "cjk admin units",
			location: "新北市樹林區",
			want:     []string{"新北市", "樹林區"},
		},
		{
			name:     "legacy spelling expanded",
			location: "台北市",
			want:     []string{"台北市", "臺北市"},
		},
		{
			name:     "comma separated",
			location: "Shulin, 樹林區",
			want:     []string{"Shulin", "樹林區"},
		},
		{
			name:     "blank",
			location: "  ",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractKeywords(tt.location))
		})
	}
}

func TestKeywordPattern(t *testing.T) {
	assert.Nil(t, KeywordPattern(nil))

	re := KeywordPattern([]string{"樹林區", "a.b"})
	require.NotNil(t, re)
	assert.True(t, re.MatchString("新北市樹林區中山路1號"))
	assert.True(t, re.MatchString("xa.by"))
	assert.False(t, re.MatchString("axby"))
}

func TestNormalize_NoInteriorWhitespace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "新北市 樹林區 中山路 8 號", want: "新北市樹林區中山路8號"},
		{in: "新北市\t樹林區\n中山路8號", want: "新北市樹林區中山路8號"},
		{in: "臺北市\t12345", want: "臺北市12345"},
		{in: "新北市\r\n樹林區 中山路8號", want: "新北市樹林區中山路8號"},
	}

	for _, tt := range tests {
		out := Normalize(tt.in)
		assert.False(t, strings.ContainsFunc(out, unicode.IsSpace), "%q", tt.in)
		assert.Equal(t, tt.want, out, "%q", tt.in)
		assert.Equal(t, out, Normalize(out), "%q", tt.in)
	}
}
