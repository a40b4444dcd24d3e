package generators

import "strings"

// layoutOrDefault translates a java-style date pattern into a Go time
// layout, falling back to the default layout when no pattern is given.
func layoutOrDefault(pattern, fallback string) string {
	if pattern == "" {
		return fallback
	}
	return translateDatePattern(pattern)
}

// translateDatePattern converts java SimpleDateFormat tokens to Go layout
// fragments. Unknown letters pass through unchanged; single-quoted
// sections are literal text.
func translateDatePattern(pattern string) string {
	var sb strings.Builder
	for i := 0; i < len(pattern); {
		c := pattern[i]
		if c == '\'' {
			// Quoted literal, '' is an escaped quote.
			i++
			for i < len(pattern) {
				if pattern[i] == '\'' {
					if i+1 < len(pattern) && pattern[i+1] == '\'' {
						sb.WriteByte('\'')
						i += 2
						continue
					}
					i++
					break
				}
				sb.WriteByte(pattern[i])
				i++
			}
			continue
		}
		if !isPatternLetter(c) {
			sb.WriteByte(c)
			i++
			continue
		}
		run := 1
		for i+run < len(pattern) && pattern[i+run] == c {
			run++
		}
		sb.WriteString(patternToken(c, run))
		i += run
	}
	return sb.String()
}

func isPatternLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func patternToken(c byte, run int) string {
	switch c {
	case 'y', 'u':
		if run == 2 {
			return "06"
		}
		return "2006"
	case 'M', 'L':
		switch {
		case run >= 4:
			return "January"
		case run == 3:
			return "Jan"
		case run == 2:
			return "01"
		default:
			return "1"
		}
	case 'd':
		if run >= 2 {
			return "02"
		}
		return "2"
	case 'E':
		if run >= 4 {
			return "Monday"
		}
		return "Mon"
	case 'H':
		return "15"
	case 'h':
		if run >= 2 {
			return "03"
		}
		return "3"
	case 'm':
		if run >= 2 {
			return "04"
		}
		return "4"
	case 's':
		if run >= 2 {
			return "05"
		}
		return "5"
	case 'S':
		// Relies on the literal '.' or ',' preceding it in the pattern.
		return strings.Repeat("0", run)
	case 'a':
		return "PM"
	case 'z':
		return "MST"
	case 'Z':
		return "-0700"
	case 'X', 'x':
		switch run {
		case 1:
			return "-07"
		case 2:
			return "-0700"
		default:
			return "-07:00"
		}
	default:
		return strings.Repeat(string(c), run)
	}
}
