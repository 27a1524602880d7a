package section

import (
	"bytes"
	"fmt"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// Compiler assembles a section's role files into one flattened output.
// It is a pure transform over provided file contents; callers perform the
// disk reads and writes.
type Compiler struct {
	// MinifyScripts runs the script slot through esbuild before wrapping.
	// Off by default so outputs stay byte-identical to their sources.
	MinifyScripts bool
}

var slotSeparator = []byte("\n")

// Assemble builds the output content for a multi-file section. Slots are
// emitted in the fixed order style, template, script, schema regardless of
// the order files are passed in. Empty style and script slots are omitted;
// the template slot is always emitted when its file exists; the schema slot
// is always emitted wrapped, even when empty.
func (c Compiler) Assemble(files []File) ([]byte, error) {
	var slots [roleCount][]byte
	var present [roleCount]bool

	for _, f := range files {
		switch f.Role {
		case RoleStyle:
			if !styleHasContent(f.Contents) {
				continue
			}
			slots[RoleStyle] = f.Contents
			present[RoleStyle] = true

		case RoleTemplate:
			slots[RoleTemplate] = f.Contents
			present[RoleTemplate] = true

		case RoleScript:
			if !scriptHasContent(f.Contents) {
				continue
			}
			content := f.Contents
			if c.MinifyScripts {
				minified, err := minifyScript(content)
				if err != nil {
					return nil, err
				}
				content = minified
			}
			slots[RoleScript] = wrap("javascript", content)
			present[RoleScript] = true

		case RoleSchema:
			slots[RoleSchema] = wrap("schema", f.Contents)
			present[RoleSchema] = true
		}
	}

	parts := make([][]byte, 0, roleCount)
	for r := Role(0); r < roleCount; r++ {
		if present[r] {
			parts = append(parts, slots[r])
		}
	}
	return bytes.Join(parts, slotSeparator), nil
}

// wrap surrounds content with {% tag %} / {% endtag %} lines. Non-empty
// content is newline-terminated so the end tag sits on its own line.
func wrap(tag string, content []byte) []byte {
	var b bytes.Buffer
	b.Grow(len(content) + 2*len(tag) + 16)
	fmt.Fprintf(&b, "{%% %s %%}\n", tag)
	b.Write(content)
	if len(content) > 0 && content[len(content)-1] != '\n' {
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "{%% end%s %%}\n", tag)
	return b.Bytes()
}

func minifyScript(content []byte) ([]byte, error) {
	result := esbuild.Transform(string(content), esbuild.TransformOptions{
		Loader:            esbuild.LoaderJS,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
	})
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("minify script: %s", result.Errors[0].Text)
	}
	return result.Code, nil
}
