package slugify

import (
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Arabic text",
			input:    "خاتم ذهب",
			expected: "khatm-thhb",
		},
		{
			name:     "Mixed Arabic and English",
			input:    "خاتم Gold ذهب",
			expected: "khatm-gold-thhb",
		},
		{
			name:     "English text",
			input:    "Elegant Gold Ring",
			expected: "elegant-gold-ring",
		},
		{
			name:     "Urdu text",
			input:    "سونے کی انگوٹھی",
			expected: "swne-ky-angwthy",
		},
		{
			name:     "Arabic numerals",
			input:    "خاتم رقم ١٢٣",
			expected: "khatm-rqm-123",
		},
		{
			name:     "Urdu numerals",
			input:    "انگوٹھی ۱۲۳",
			expected: "angwthy-123",
		},
		{
			name:     "Text with special characters",
			input:    "خاتم ذهب... أصيل!!!",
			expected: "khatm-thhb-asyl",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "Only special characters",
			input:    "!@#$%^&*()",
			expected: "slug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Generate(tt.input)
			if result != tt.expected {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGenerateWithConfig(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		config   Config
		expected string
	}{
		{
			name:  "Preserve case",
			input: "خاتم Gold",
			config: Config{
				MaxLength:    100,
				PreserveCase: true,
				Separator:    "-",
			},
			expected: "khatm-Gold",
		},
		{
			name:  "Custom separator",
			input: "خاتم ذهب",
			config: Config{
				MaxLength: 100,
				Separator: "_",
			},
			expected: "khatm_thhb",
		},
		{
			name:  "Max length constraint",
			input: "خاتم ذهب أصيل جميل",
			config: Config{
				MaxLength: 15,
				Separator: "-",
			},
			expected: "khatm-thhb-asyl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateWithConfig(tt.input, tt.config)
			if result != tt.expected {
				t.Errorf("GenerateWithConfig(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestTransliterate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"خاتم", "khatm"},
		{"ذهب", "thhb"},
		{"لؤلؤ", "lolo"},
		{"١٢٣", "123"},
		{"سونے", "swne"},
		{"انگوٹھی", "angwthy"},
		{"چاندی", "chandy"},
		{"۴۵۶", "456"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := transliterate(tt.input)
			if result != tt.expected {
				t.Errorf("transliterate(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestValidateSlug(t *testing.T) {
	tests := []struct {
		name      string
		slug      string
		shouldErr bool
	}{
		{"Valid slug", "valid-slug", false},
		{"Valid with numbers", "valid-slug-123", false},
		{"Empty slug", "", true},
		{"Starts with separator", "-invalid", true},
		{"Ends with separator", "invalid-", true},
		{"Consecutive separators", "invalid--slug", true},
		{"Invalid characters", "invalid@slug", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlug(tt.slug)
			if tt.shouldErr && err == nil {
				t.Errorf("ValidateSlug(%q) expected error but got none", tt.slug)
			}
			if !tt.shouldErr && err != nil {
				t.Errorf("ValidateSlug(%q) unexpected error: %v", tt.slug, err)
			}
		})
	}
}

func TestSanitizeSlug(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"خاتم ذهب", "khatm-thhb"},
		{"  خاتم  ذهب  ", "khatm-thhb"},
		{"خاتم@ذهب#أصيل", "khatm-thhb-asyl"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := SanitizeSlug(tt.input)
			if err != nil {
				t.Errorf("SanitizeSlug(%q) unexpected error: %v", tt.input, err)
				return
			}
			if result != tt.expected {
				t.Errorf("SanitizeSlug(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestBatchGenerate(t *testing.T) {
	inputs := []string{"خاتم ذهب", "عقد لؤلؤ", "سوار فضة"}
	config := DefaultConfig()

	results := BatchGenerate(inputs, config)

	expected := []string{"khatm-thhb", "aqd-lolo", "swar-fdh"}

	if len(results) != len(expected) {
		t.Errorf("BatchGenerate returned %d results, want %d", len(results), len(expected))
		return
	}

	for i, result := range results {
		if result != expected[i] {
			t.Errorf("BatchGenerate[%d] = %q, want %q", i, result, expected[i])
		}
	}
}

func TestCleanupSeparators(t *testing.T) {
	tests := []struct {
		input     string
		separator string
		expected  string
	}{
		{"hello--world", "-", "hello-world"},
		{"hello---world", "-", "hello-world"},
		{"hello__world", "_", "hello_world"},
		{"hello-world", "-", "hello-world"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := cleanupSeparators(tt.input, tt.separator)
			if result != tt.expected {
				t.Errorf("cleanupSeparators(%q, %q) = %q, want %q", tt.input, tt.separator, result, tt.expected)
			}
		})
	}
}

func TestRemoveNonASCII(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello-world", "hello-world"},
		{"hello-世界", "hello-"},
		{"خاتم-gold", "-gold"},
		{"123-abc", "123-abc"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := removeNonASCII(tt.input)
			if result != tt.expected {
				t.Errorf("removeNonASCII(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestReplaceSpecialChars(t *testing.T) {
	tests := []struct {
		input     string
		separator string
		expected  string
	}{
		{"hello world", "-", "hello-world"},
		{"hello_world", "-", "hello-world"},
		{"hello.world", "-", "hello-world"},
		{"hello/world", "-", "hello-world"},
		{"hello@world#test", "-", "hello-world-test"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := replaceSpecialChars(tt.input, tt.separator)
			if !strings.Contains(result, tt.separator) && tt.input != tt.expected {
				t.Errorf("replaceSpecialChars(%q, %q) = %q, expected to contain separator", tt.input, tt.separator, result)
			}
		})
	}
}
