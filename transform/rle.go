package transform

import "github.com/julea-project/julea/cmn"

// encodeRLE emits pairs (copies, value) where copies in [0,255]
// represents copies+1 repeats of value (§4.4).
func encodeRLE(input []byte) ([]byte, error) {
	out := make([]byte, 0, len(input)/2+2)
	i := 0
	for i < len(input) {
		value := input[i]
		run := 1
		for i+run < len(input) && input[i+run] == value && run < 256 {
			run++
		}
		out = append(out, byte(run-1), value)
		i += run
	}
	return out, nil
}

// decodeRLE expands (copies, value) pairs back into the repeated bytes.
func decodeRLE(input []byte) ([]byte, error) {
	if len(input)%2 != 0 {
		return nil, cmn.Wrapf(cmn.ErrInputInvalid, "transform: odd-length RLE stream (%d bytes)", len(input))
	}
	out := make([]byte, 0, len(input)*2)
	for i := 0; i < len(input); i += 2 {
		copies := int(input[i])
		value := input[i+1]
		for n := 0; n <= copies; n++ {
			out = append(out, value)
		}
	}
	return out, nil
}
