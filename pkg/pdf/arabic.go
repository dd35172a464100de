package pdf

import "unicode"

type joining uint8

const (
	joinNone  joining = iota
	joinRight         // connects to the previous letter only
	joinDual          // connects on both sides
)

type arabicForm struct {
	base rune // isolated presentation form; final = base+1, initial = base+2, medial = base+3
	join joining
}

var arabicForms = map[rune]arabicForm{
	0x0621: {0xFE80, joinNone},
	0x0622: {0xFE81, joinRight},
	0x0623: {0xFE83, joinRight},
	0x0624: {0xFE85, joinRight},
	0x0625: {0xFE87, joinRight},
	0x0626: {0xFE89, joinDual},
	0x0627: {0xFE8D, joinRight},
	0x0628: {0xFE8F, joinDual},
	0x0629: {0xFE93, joinRight},
	0x062A: {0xFE95, joinDual},
	0x062B: {0xFE99, joinDual},
	0x062C: {0xFE9D, joinDual},
	0x062D: {0xFEA1, joinDual},
	0x062E: {0xFEA5, joinDual},
	0x062F: {0xFEA9, joinRight},
	0x0630: {0xFEAB, joinRight},
	0x0631: {0xFEAD, joinRight},
	0x0632: {0xFEAF, joinRight},
	0x0633: {0xFEB1, joinDual},
	0x0634: {0xFEB5, joinDual},
	0x0635: {0xFEB9, joinDual},
	0x0636: {0xFEBD, joinDual},
	0x0637: {0xFEC1, joinDual},
	0x0638: {0xFEC5, joinDual},
	0x0639: {0xFEC9, joinDual},
	0x063A: {0xFECD, joinDual},
	0x0641: {0xFED1, joinDual},
	0x0642: {0xFED5, joinDual},
	0x0643: {0xFED9, joinDual},
	0x0644: {0xFEDD, joinDual},
	0x0645: {0xFEE1, joinDual},
	0x0646: {0xFEE5, joinDual},
	0x0647: {0xFEE9, joinDual},
	0x0648: {0xFEED, joinRight},
	0x0649: {0xFEEF, joinRight},
	0x064A: {0xFEF1, joinDual},
}

const (
	lam     = 0x0644
	tatweel = 0x0640
)

// lam-alef ligatures, isolated form; final = +1
var lamAlef = map[rune]rune{
	0x0622: 0xFEF5,
	0x0623: 0xFEF7,
	0x0625: 0xFEF9,
	0x0627: 0xFEFB,
}

func joiningOf(r rune) joining {
	if r == tatweel {
		return joinDual
	}
	if f, ok := arabicForms[r]; ok {
		return f.join
	}
	return joinNone
}

// transparent marks (harakat) do not break joining
func isTransparent(r rune) bool {
	return (r >= 0x064B && r <= 0x065F) || r == 0x0670
}

func neighbour(runes []rune, i, step int) rune {
	for j := i + step; j >= 0 && j < len(runes); j += step {
		if !isTransparent(runes[j]) {
			return runes[j]
		}
	}
	return 0
}

// shapeArabic replaces Arabic letters with their contextual presentation forms.
// The result is still in logical order.
func shapeArabic(s string) string {
	runes := []rune(s)
	out := make([]rune, 0, len(runes))

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		form, ok := arabicForms[r]
		if !ok {
			out = append(out, r)
			continue
		}

		prev := neighbour(runes, i, -1)
		joinsPrev := form.join != joinNone && joiningOf(prev) == joinDual

		if r == lam {
			next := i + 1
			for next < len(runes) && isTransparent(runes[next]) {
				next++
			}
			if next < len(runes) {
				if lig, ok := lamAlef[runes[next]]; ok {
					if joinsPrev {
						lig++
					}
					out = append(out, lig)
					out = append(out, runes[i+1:next]...)
					i = next
					continue
				}
			}
		}

		next := neighbour(runes, i, 1)
		joinsNext := form.join == joinDual && joiningOf(next) != joinNone

		switch {
		case joinsPrev && joinsNext:
			out = append(out, form.base+3)
		case joinsPrev:
			out = append(out, form.base+1)
		case joinsNext:
			out = append(out, form.base+2)
		default:
			out = append(out, form.base)
		}
	}
	return string(out)
}

func isRTL(r rune) bool {
	return unicode.In(r, unicode.Arabic, unicode.Hebrew) && !unicode.IsDigit(r)
}

func isLTR(r rune) bool {
	return unicode.IsDigit(r) || (unicode.IsLetter(r) && !isRTL(r))
}

func hasRTL(s string) bool {
	for _, r := range s {
		if isRTL(r) {
			return true
		}
	}
	return false
}

var mirrored = map[rune]rune{'(': ')', ')': '(', '[': ']', ']': '[', '{': '}', '}': '{', '<': '>', '>': '<'}

// visualOrder lays out a right-to-left paragraph for a renderer that draws
// runes left to right. Runs of digits and Latin text keep their order.
func visualOrder(s string) string {
	if !hasRTL(s) {
		return s
	}
	runes := []rune(s)

	type run struct {
		text []rune
		ltr  bool
	}
	var runs []run
	for i := 0; i < len(runes); {
		j := i
		if isLTR(runes[i]) {
			for j < len(runes) {
				if isLTR(runes[j]) {
					j++
					continue
				}
				// neutrals stay inside the run only when more LTR text follows
				k := j
				for k < len(runes) && !isLTR(runes[k]) && !isRTL(runes[k]) {
					k++
				}
				if k < len(runes) && isLTR(runes[k]) && k > j {
					j = k
					continue
				}
				break
			}
			runs = append(runs, run{text: runes[i:j], ltr: true})
		} else {
			for j < len(runes) && !isLTR(runes[j]) {
				j++
			}
			runs = append(runs, run{text: runes[i:j]})
		}
		i = j
	}

	out := make([]rune, 0, len(runes))
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		if r.ltr {
			out = append(out, r.text...)
			continue
		}
		for k := len(r.text) - 1; k >= 0; k-- {
			c := r.text[k]
			if m, ok := mirrored[c]; ok {
				c = m
			}
			out = append(out, c)
		}
	}
	return string(out)
}

// arabicText prepares logical-order Arabic text for drawing
func arabicText(s string) string {
	return visualOrder(shapeArabic(s))
}
