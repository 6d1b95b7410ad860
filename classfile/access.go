package classfile

import "strings"

// AccessFlags is the access_flags word of a class, field or method.
type AccessFlags uint16

const (
	AccPublic    AccessFlags = 0x0001
	AccPrivate   AccessFlags = 0x0002
	AccProtected AccessFlags = 0x0004
	AccStatic    AccessFlags = 0x0008
	AccFinal     AccessFlags = 0x0010
	AccNative    AccessFlags = 0x0100
	AccInterface AccessFlags = 0x0200
	AccAbstract  AccessFlags = 0x0400
	AccEnum      AccessFlags = 0x4000
)

var accessNames = []struct {
	flag AccessFlags
	name string
}{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccNative, "native"},
	{AccInterface, "interface"},
	{AccAbstract, "abstract"},
	{AccEnum, "enum"},
}

// Has reports whether every bit of flag is set.
func (f AccessFlags) Has(flag AccessFlags) bool {
	return f&flag == flag
}

func (f AccessFlags) IsPublic() bool   { return f.Has(AccPublic) }
func (f AccessFlags) IsPrivate() bool  { return f.Has(AccPrivate) }
func (f AccessFlags) IsStatic() bool   { return f.Has(AccStatic) }
func (f AccessFlags) IsAbstract() bool { return f.Has(AccAbstract) }

// IsPackageVisible reports whether the member is neither public nor private,
// which covers package-private and protected. A member carrying both the
// public and the private bit is not package-visible.
func (f AccessFlags) IsPackageVisible() bool {
	return f&(AccPublic|AccPrivate) == 0
}

// String renders the flags as space separated keywords.
func (f AccessFlags) String() string {
	var parts []string
	for _, n := range accessNames {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, " ")
}
