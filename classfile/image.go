package classfile

import (
	"fmt"

	"github.com/chazu/optfacts/bytecode"
	"github.com/fxamacker/cbor/v2"
)

// ImageVersion is the current pool image format version.
const ImageVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("classfile: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// image is the serialized form of a Pool. Handles are not stored; they are
// reassigned in order when the image is loaded.
type image struct {
	Version uint8        `cbor:"version"`
	Classes []classImage `cbor:"classes"`
}

type classImage struct {
	Name      string        `cbor:"name"`
	Super     string        `cbor:"super,omitempty"`
	Flags     AccessFlags   `cbor:"flags"`
	Library   bool          `cbor:"library,omitempty"`
	Constants []Constant    `cbor:"constants,omitempty"`
	Fields    []memberImage `cbor:"fields,omitempty"`
	Methods   []memberImage `cbor:"methods,omitempty"`
}

type memberImage struct {
	Name       string         `cbor:"name"`
	Descriptor string         `cbor:"desc"`
	Flags      AccessFlags    `cbor:"flags"`
	Code       *bytecode.Code `cbor:"code,omitempty"`
}

// MarshalPool serializes a pool to deterministic CBOR bytes.
func MarshalPool(p *Pool) ([]byte, error) {
	img := image{Version: ImageVersion}
	for _, c := range p.classes {
		ci := classImage{
			Name:      c.Name,
			Super:     c.Super,
			Flags:     c.Flags,
			Library:   c.Library,
			Constants: c.Constants,
		}
		for _, id := range c.Fields {
			f := p.fields[id]
			ci.Fields = append(ci.Fields, memberImage{Name: f.Name, Descriptor: f.Descriptor, Flags: f.Flags})
		}
		for _, id := range c.Methods {
			m := p.methods[id]
			ci.Methods = append(ci.Methods, memberImage{Name: m.Name, Descriptor: m.Descriptor, Flags: m.Flags, Code: m.Code})
		}
		img.Classes = append(img.Classes, ci)
	}
	return cborEncMode.Marshal(&img)
}

// UnmarshalPool rebuilds a pool from CBOR bytes.
func UnmarshalPool(data []byte) (*Pool, error) {
	var img image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("classfile: unmarshal pool: %w", err)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("classfile: unsupported pool image version %d", img.Version)
	}

	p := NewPool()
	for _, ci := range img.Classes {
		if _, dup := p.ClassByName(ci.Name); dup {
			return nil, fmt.Errorf("classfile: duplicate class %s in image", ci.Name)
		}
		c := p.AddClass(ci.Name, ci.Super, ci.Flags)
		c.Library = ci.Library
		c.Constants = ConstantPool(ci.Constants)
		for _, f := range ci.Fields {
			p.AddField(c, f.Name, f.Descriptor, f.Flags)
		}
		for _, m := range ci.Methods {
			if _, err := p.AddMethod(c, m.Name, m.Descriptor, m.Flags, m.Code); err != nil {
				return nil, fmt.Errorf("classfile: unmarshal pool: %w", err)
			}
		}
	}
	return p, nil
}
