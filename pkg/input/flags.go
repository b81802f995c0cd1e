package input

import "strings"

// StringSliceFlag implements flag.Value for repeated or comma-separated
// string flags: -p a -p b and -p a,b both yield [a b].
type StringSliceFlag []string

func (s *StringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *StringSliceFlag) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			*s = append(*s, v)
		}
	}
	return nil
}
