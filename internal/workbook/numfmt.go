package workbook

import "strings"

// Built-in number formats that display dates or times. 18-21 and 45-47 show
// the time of day only.
var (
	builtinDateFormats = map[int]bool{
		14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
		27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
		45: true, 46: true, 47: true,
		50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
	}
	builtinTimeFormats = map[int]bool{
		18: true, 19: true, 20: true, 21: true, 32: true, 33: true, 34: true, 35: true,
		45: true, 46: true, 47: true,
	}
)

// dateFormat classifies a number format. date is true when the format
// renders a serial number as a date or time; timeOnly when it shows no
// calendar part.
func dateFormat(id int, custom *string) (date, timeOnly bool) {
	if custom == nil || *custom == "" {
		return builtinDateFormats[id], builtinTimeFormats[id]
	}

	code := stripLiterals(*custom)
	hasDate := strings.ContainsAny(code, "yd")
	hasTime := strings.ContainsAny(code, "hs")
	if !hasDate && !hasTime {
		// "mm" alone is a month, not minutes
		hasDate = strings.Contains(code, "m")
	}
	return hasDate || hasTime, hasTime && !hasDate
}

// stripLiterals lowercases a format code and removes quoted text, escaped
// characters and bracketed sections other than elapsed time ([h], [mm], [ss]).
// Only the first section of a multi-section code is kept.
func stripLiterals(code string) string {
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}

	var b strings.Builder
	inQuote := false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			if c == '"' {
				inQuote = false
			}
		case c == '"':
			inQuote = true
		case c == '\\' || c == '_' || c == '*':
			i++
		case c == '[':
			end := strings.IndexByte(code[i:], ']')
			if end < 0 {
				i = len(code)
				break
			}
			inner := strings.ToLower(code[i+1 : i+end])
			if strings.Trim(inner, "hms") == "" {
				b.WriteString(inner)
			}
			i += end
		default:
			b.WriteByte(toLower(c))
		}
	}
	return b.String()
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
