// Package section contains the pure core of the concatenator: the mapping
// from source paths to section names and destination paths, and the
// role-ordered assembly of a section's component files into one output.
package section

// Role is the semantic category of a file inside a multi-file section,
// determined by exact filename match.
type Role int

const (
	RoleStyle Role = iota
	RoleTemplate
	RoleScript
	RoleSchema

	roleCount
)

func (r Role) String() string {
	switch r {
	case RoleStyle:
		return "style"
	case RoleTemplate:
		return "template"
	case RoleScript:
		return "script"
	case RoleSchema:
		return "schema"
	}
	return "unknown"
}

// Exact filenames only. Case matters, alternate extensions do not count.
// Anything else inside a section folder is silently ignored.
var roleFilenames = map[string]Role{
	"style.liquid":    RoleStyle,
	"template.liquid": RoleTemplate,
	"javascript.js":   RoleScript,
	"schema.json":     RoleSchema,
}

// RoleForName maps a bare filename to its role. The second return is false
// for filenames that carry no role.
func RoleForName(name string) (Role, bool) {
	r, ok := roleFilenames[name]
	return r, ok
}

// File is one role-typed component of a multi-file section.
type File struct {
	Role     Role
	Contents []byte
}

// Compiled is the output artifact for one section: a destination path and
// the flattened content that overwrites whatever was there before.
type Compiled struct {
	Path    string
	Content []byte
}
