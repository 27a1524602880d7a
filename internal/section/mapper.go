package section

import (
	"path"
	"path/filepath"
	"strings"
)

// OutputExt is the extension every compiled section output carries, exactly
// once, for both the write path and the removal path.
const OutputExt = ".liquid"

// Mapper translates source section paths to section names and destination
// paths. It is pure string math over slash-normalized paths and never touches
// the filesystem, so it can be applied to paths that no longer exist.
type Mapper struct {
	srcSections  string
	distSections string
}

// NewMapper builds a Mapper for a source sections root and a destination
// sections root (e.g. "src/sections" and "dist/sections").
func NewMapper(srcSections, distSections string) Mapper {
	return Mapper{
		srcSections:  normalize(srcSections),
		distSections: normalize(distSections),
	}
}

func normalize(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

// SrcRoot returns the normalized source sections root.
func (m Mapper) SrcRoot() string { return m.srcSections }

// DistRoot returns the normalized destination sections root.
func (m Mapper) DistRoot() string { return m.distSections }

// SectionName resolves a path under the source sections root to a section
// name. One segment below the root is a single-file section, two segments is
// a file inside a multi-file section folder. Any other depth, or a path
// outside the root, is not a section and returns false.
func (m Mapper) SectionName(p string) (string, bool) {
	np := normalize(p)
	if np == m.srcSections {
		return "", false
	}
	rel := strings.TrimPrefix(np, m.srcSections+"/")
	if rel == np || rel == "" {
		return "", false
	}
	segs := strings.Split(rel, "/")
	switch len(segs) {
	case 1:
		return segs[0], true
	case 2:
		return segs[0], true
	default:
		return "", false
	}
}

// DestName returns the output filename for a section name, applying the
// output extension exactly once so that "hero" and "hero.liquid" both map to
// "hero.liquid". Appending unconditionally would give single-file sections a
// doubled extension and make removal target a file that was never written.
func (m Mapper) DestName(name string) string {
	return strings.TrimSuffix(name, OutputExt) + OutputExt
}

// DestPath maps a source section path to the destination file it compiles to.
// Used for removal targets, so it never consults the filesystem. Returns
// false when the source path does not address a section.
func (m Mapper) DestPath(p string) (string, bool) {
	name, ok := m.SectionName(p)
	if !ok {
		return "", false
	}
	return path.Join(m.distSections, m.DestName(name)), true
}
