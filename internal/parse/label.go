package parse

import (
	"strings"
	"unicode/utf8"
)

// MinLabelLen is the shortest label worth tokenizing, in characters.
const MinLabelLen = 3

// FilepathLike reports labels that are really scanner paths, such as
// \sav6\work_channel1_12\57745154.
func FilepathLike(label string) bool {
	return strings.Count(label, "/") > 2 || strings.Contains(label, `\`)
}

// ValidLabel rejects labels that cannot carry tags.
func ValidLabel(label string) bool {
	return utf8.RuneCountInString(label) >= MinLabelLen && !FilepathLike(label)
}
