package section

import (
	"testing"
)

func TestAssembleSlotOrder(t *testing.T) {
	// Files arrive in arbitrary listing order; slots come out fixed.
	files := []File{
		{Role: RoleSchema, Contents: []byte(`{"name":"hero"}`)},
		{Role: RoleScript, Contents: []byte("console.log(1);")},
		{Role: RoleTemplate, Contents: []byte("<div>{{ title }}</div>")},
		{Role: RoleStyle, Contents: []byte(".a{color:red}")},
	}

	got, err := Compiler{}.Assemble(files)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	want := ".a{color:red}" +
		"\n" + "<div>{{ title }}</div>" +
		"\n" + "{% javascript %}\nconsole.log(1);\n{% endjavascript %}\n" +
		"\n" + "{% schema %}\n{\"name\":\"hero\"}\n{% endschema %}\n"

	if string(got) != want {
		t.Errorf("Assemble() =\n%q\nwant\n%q", got, want)
	}
}

func TestAssembleStyleAndTemplate(t *testing.T) {
	files := []File{
		{Role: RoleStyle, Contents: []byte("/* c */\n<style>.a{color:red}</style>")},
		{Role: RoleTemplate, Contents: []byte("<div>{{ title }}</div>")},
	}

	got, err := Compiler{}.Assemble(files)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	// Style content is emitted verbatim, wrapper tags and all.
	want := "/* c */\n<style>.a{color:red}</style>\n<div>{{ title }}</div>"
	if string(got) != want {
		t.Errorf("Assemble() = %q, want %q", got, want)
	}
}

func TestAssembleSchemaOnly(t *testing.T) {
	got, err := Compiler{}.Assemble([]File{
		{Role: RoleSchema, Contents: []byte("{}")},
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	want := "{% schema %}\n{}\n{% endschema %}\n"
	if string(got) != want {
		t.Errorf("Assemble() = %q, want %q", got, want)
	}
}

func TestAssembleEmptySlots(t *testing.T) {
	tests := []struct {
		name  string
		files []File
		want  string
	}{
		{
			name: "CommentOnlyStyleOmitted",
			files: []File{
				{Role: RoleStyle, Contents: []byte("/* nothing here */\n<style>\n</style>\n")},
				{Role: RoleTemplate, Contents: []byte("<p>hi</p>")},
			},
			want: "<p>hi</p>",
		},
		{
			name: "WhitespaceOnlyScriptOmitted",
			files: []File{
				{Role: RoleTemplate, Contents: []byte("<p>hi</p>")},
				{Role: RoleScript, Contents: []byte("\n\t  \n")},
			},
			want: "<p>hi</p>",
		},
		{
			name: "CommentOnlyScriptOmitted",
			files: []File{
				{Role: RoleTemplate, Contents: []byte("<p>hi</p>")},
				{Role: RoleScript, Contents: []byte("// todo\n/* later */\n")},
			},
			want: "<p>hi</p>",
		},
		{
			name: "EmptySchemaStillWrapped",
			files: []File{
				{Role: RoleSchema, Contents: nil},
			},
			want: "{% schema %}\n{% endschema %}\n",
		},
		{
			name: "EmptyTemplateStillEmitted",
			files: []File{
				{Role: RoleTemplate, Contents: nil},
				{Role: RoleSchema, Contents: []byte("{}")},
			},
			want: "\n{% schema %}\n{}\n{% endschema %}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compiler{}.Assemble(tt.files)
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Assemble() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssembleScriptKeepsTrailingNewline(t *testing.T) {
	got, err := Compiler{}.Assemble([]File{
		{Role: RoleScript, Contents: []byte("alert(1);\n")},
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	want := "{% javascript %}\nalert(1);\n{% endjavascript %}\n"
	if string(got) != want {
		t.Errorf("Assemble() = %q, want %q", got, want)
	}
}

func TestStyleHasContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"Empty", "", false},
		{"WhitespaceOnly", " \n\t ", false},
		{"CommentOnly", "/* c */", false},
		{"BareStyleTags", "<style></style>", false},
		{"CommentAndTags", "/* c */\n<style>\n\n</style>\n", false},
		{"RealRule", "/* c */\n<style>.a{color:red}</style>", true},
		{"RuleWithoutTags", ".a{color:red}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := styleHasContent([]byte(tt.in)); got != tt.want {
				t.Errorf("styleHasContent(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestScriptHasContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"Empty", "", false},
		{"WhitespaceOnly", "\n\n  \t", false},
		{"LineComment", "// nothing\n", false},
		{"BlockComment", "/* nothing */", false},
		{"MixedComments", "// a\n/* b */\n\n", false},
		{"Statement", "console.log(1);", true},
		{"StatementAfterComment", "// setup\nwindow.x = 1;", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scriptHasContent([]byte(tt.in)); got != tt.want {
				t.Errorf("scriptHasContent(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
