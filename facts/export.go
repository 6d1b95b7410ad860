package facts

import (
	"fmt"
	"sort"

	"github.com/chazu/optfacts/classfile"
	"github.com/fxamacker/cbor/v2"
)

// ExportVersion is the current fact export format version.
const ExportVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("facts: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

const (
	flagNoSideEffects uint8 = 1 << iota
	flagNoExternalSideEffects
	flagModifiesAnything
	flagReturnsExternalValues
	flagNoExternalReturnValues
)

type methodRecord struct {
	Signature string `cbor:"sig"`
	Policy    Policy `cbor:"policy"`
	Flags     uint8  `cbor:"flags"`
	Modified  uint64 `cbor:"modified"`
	Returned  uint64 `cbor:"returned"`
	Escaped   uint64 `cbor:"escaped"`
}

type exportFile struct {
	Version uint8          `cbor:"version"`
	Methods []methodRecord `cbor:"methods"`
}

func packFlags(f *MethodFacts) uint8 {
	var flags uint8
	for _, b := range []struct {
		set  bool
		flag uint8
	}{
		{f.noSideEffects, flagNoSideEffects},
		{f.noExternalSideEffects, flagNoExternalSideEffects},
		{f.modifiesAnything, flagModifiesAnything},
		{f.returnsExternalValues, flagReturnsExternalValues},
		{f.noExternalReturnValues, flagNoExternalReturnValues},
	} {
		if b.set {
			flags |= b.flag
		}
	}
	return flags
}

func unpackRecord(r methodRecord) MethodFacts {
	return MethodFacts{
		policy:                 r.Policy,
		noSideEffects:          r.Flags&flagNoSideEffects != 0,
		noExternalSideEffects:  r.Flags&flagNoExternalSideEffects != 0,
		modifiesAnything:       r.Flags&flagModifiesAnything != 0,
		returnsExternalValues:  r.Flags&flagReturnsExternalValues != 0,
		noExternalReturnValues: r.Flags&flagNoExternalReturnValues != 0,
		modified:               r.Modified,
		returned:               r.Returned,
		escaped:                r.Escaped,
	}
}

// Export encodes every method record of t, keyed by method signature, as
// deterministic CBOR.
func Export(pool *classfile.Pool, t *Table) ([]byte, error) {
	file := exportFile{Version: ExportVersion}
	for _, id := range t.MethodIDs() {
		f := t.Method(id)
		file.Methods = append(file.Methods, methodRecord{
			Signature: pool.Method(id).Signature(),
			Policy:    f.policy,
			Flags:     packFlags(f),
			Modified:  f.modified,
			Returned:  f.returned,
			Escaped:   f.escaped,
		})
	}
	sort.Slice(file.Methods, func(i, j int) bool {
		return file.Methods[i].Signature < file.Methods[j].Signature
	})
	return cborEncMode.Marshal(&file)
}

// Import applies exported records to the methods of pool with the same
// signature. Methods already registered as program code keep their own
// records. It returns the number of records applied.
func Import(pool *classfile.Pool, t *Table, data []byte) (int, error) {
	var file exportFile
	if err := cbor.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("facts: unmarshal export: %w", err)
	}
	if file.Version != ExportVersion {
		return 0, fmt.Errorf("facts: unsupported export version %d", file.Version)
	}

	bySig := make(map[string]classfile.MethodID, pool.NumMethods())
	for _, m := range pool.Methods() {
		bySig[m.Signature()] = m.ID
	}

	applied := 0
	for _, r := range file.Methods {
		id, ok := bySig[r.Signature]
		if !ok {
			log.Debugf("import: %s not in pool", r.Signature)
			continue
		}
		if t.restore(id, unpackRecord(r)) {
			applied++
		}
	}
	log.Infof("imported %d of %d method records", applied, len(file.Methods))
	return applied, nil
}
