package language

import "strings"

type entry struct {
	code2     string
	code3     string
	alt3      []string
	tesseract string
	display   string
	words     []string
}

var languages = []entry{
	{"en", "eng", nil, "eng", "English", []string{"english"}},
	{"es", "spa", nil, "spa", "Spanish", []string{"spanish"}},
	{"fr", "fra", []string{"fre"}, "fra", "French", []string{"french"}},
	{"de", "deu", []string{"ger"}, "deu", "German", []string{"german"}},
	{"it", "ita", nil, "ita", "Italian", []string{"italian"}},
	{"pt", "por", nil, "por", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", nil, "jpn", "Japanese", []string{"japanese"}},
	{"ko", "kor", nil, "kor", "Korean", []string{"korean"}},
	{"zh", "zho", []string{"chi", "cmn"}, "chi_sim", "Chinese", []string{"chinese", "mandarin"}},
	{"ru", "rus", nil, "rus", "Russian", []string{"russian"}},
	{"ar", "ara", []string{"arb"}, "ara", "Arabic", []string{"arabic"}},
	{"nl", "nld", []string{"dut"}, "nld", "Dutch", []string{"dutch"}},
	{"pl", "pol", nil, "pol", "Polish", []string{"polish"}},
	{"sv", "swe", nil, "swe", "Swedish", []string{"swedish"}},
	{"da", "dan", nil, "dan", "Danish", []string{"danish"}},
	{"no", "nor", []string{"nob", "nno"}, "nor", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", nil, "fin", "Finnish", []string{"finnish"}},
	{"el", "ell", []string{"gre"}, "ell", "Greek", []string{"greek"}},
	{"cs", "ces", []string{"cze"}, "ces", "Czech", []string{"czech"}},
	{"hu", "hun", nil, "hun", "Hungarian", []string{"hungarian"}},
	{"tr", "tur", nil, "tur", "Turkish", []string{"turkish"}},
	{"he", "heb", nil, "heb", "Hebrew", []string{"hebrew"}},
	{"ca", "cat", nil, "cat", "Catalan", []string{"catalan"}},
	{"la", "lat", nil, "lat", "Latin", []string{"latin"}},
}

var (
	byCode2     map[string]*entry
	byCode3     map[string]*entry
	byWord      map[string]*entry
	byTesseract map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	byTesseract = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		for _, alt := range e.alt3 {
			byCode3[alt] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
		byTesseract[e.tesseract] = e
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	if e, ok := byTesseract[code]; ok {
		return e
	}
	return nil
}

// ToISO2 converts any recognized language code or word to ISO 639-1.
// Unknown 2-letter input passes through; anything else yields "".
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// ToISO3 converts any recognized language code to ISO 639-2.
// Returns "und" for unrecognized 2-letter codes, passes through 3-letter codes.
func ToISO3(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "und"
	}
	if e := lookup(code); e != nil {
		return e.code3
	}
	if len(code) == 3 {
		return code
	}
	return "und"
}

// DisplayName returns a human-readable name for any recognized code.
// Returns "Unknown" for empty input and the uppercased code otherwise.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// TesseractCode maps one language to its traineddata name. Unrecognized
// input passes through lowercased so custom models ("frk", "chi_tra") still
// load.
func TesseractCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if e := lookup(code); e != nil {
		return e.tesseract
	}
	return code
}

// TesseractList normalizes a language list separated by "+", commas, or
// whitespace into tesseract's "eng+deu" form, dropping duplicates.
func TesseractList(list string) string {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == '+' || r == ',' || r == ' ' || r == '\t' || r == ';'
	})
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		code := TesseractCode(field)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return strings.Join(out, "+")
}
