package modelimage

import (
	"github.com/tunekit/tunekit/pkg/tunable"
)

// MaxBlockSize bounds the parameter block of an image, in bytes.
const MaxBlockSize = 1 << 30

// Build lays the parameters out in a fresh, zeroed block the way a C
// compiler would: every element naturally aligned, structs aligned to their
// widest member and padded to a multiple of that alignment.
func (img *Image) Build() (*tunable.MappingInfo, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	entries, size, align, err := layoutParams(img.Params, "")
	if err != nil {
		return nil, err
	}
	return &tunable.MappingInfo{
		Block:  make([]byte, alignUp(size, align)),
		Params: entries,
	}, nil
}

// layoutParams returns the entries with offsets relative to the start of
// their container, the container's unpadded size and its alignment.
// Containers larger than MaxBlockSize are rejected.
func layoutParams(params []Param, prefix string) ([]tunable.ParamEntry, int, int, error) {
	entries := make([]tunable.ParamEntry, 0, len(params))
	off, maxAlign := 0, 1

	for _, p := range params {
		if p.IsStruct() {
			members, size, align, err := layoutParams(p.Members, joinName(prefix, p.Name))
			if err != nil {
				return nil, 0, 0, err
			}
			size = alignUp(size, align)
			off = alignUp(off, align)
			if size > MaxBlockSize-off {
				return nil, 0, 0, tooLarge(joinName(prefix, p.Name))
			}
			entries = append(entries, tunable.ParamEntry{
				Name:    p.Name,
				Offset:  off,
				Size:    size,
				Members: members,
			})
			off += size
			maxAlign = max(maxAlign, align)
			continue
		}

		// Validate has accepted the type name.
		t, _ := tunable.ParseElemType(p.Type)
		d := p.dims()
		off = alignUp(off, t.Size())
		if d.Rows > (MaxBlockSize-off)/d.Cols/t.Size() {
			return nil, 0, 0, tooLarge(joinName(prefix, p.Name))
		}
		entries = append(entries, tunable.ParamEntry{
			Name:   p.Name,
			Type:   t,
			Offset: off,
			Rows:   d.Rows,
			Cols:   d.Cols,
			Layout: parseLayout(p.Layout),
		})
		off += d.Len() * t.Size()
		maxAlign = max(maxAlign, t.Size())
	}
	return entries, off, maxAlign, nil
}

func tooLarge(name string) error {
	return tunable.Errorf(tunable.ClassInvalidMetadata, "parameter block exceeds %d bytes", MaxBlockSize).WithParam(name)
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
