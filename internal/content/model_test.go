package content

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Como prevenir a Malária", "como-prevenir-a-malaria"},
		{"Vacinação: o que saber", "vacinacao-o-que-saber"},
		{"  Spaces   everywhere  ", "spaces-everywhere"},
		{"COVID-19 FAQ", "covid-19-faq"},
		{"100% Água Potável!", "100-agua-potavel"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := Slugify(tt.title); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(Input{Title: "Guia de Higiene", Body: "Lave as mãos."}, 3)

	if c.Type != TypeArticle {
		t.Errorf("Expected default type article, got %q", c.Type)
	}
	if c.IsPublished {
		t.Error("Expected drafts by default")
	}
	if c.Slug != "guia-de-higiene" {
		t.Errorf("Expected title-derived slug, got %q", c.Slug)
	}
	if c.AuthorID != 3 {
		t.Errorf("Expected author 3, got %d", c.AuthorID)
	}
}

func TestApplyInputRegeneratesSlugOnTitleChange(t *testing.T) {
	c := New(Input{Title: "Original", Body: "body"}, 1)

	c.ApplyInput(Input{Title: "Original", Body: "updated"})
	if c.Slug != "original" {
		t.Errorf("Expected slug kept for same title, got %q", c.Slug)
	}

	c.ApplyInput(Input{Title: "Novo Título", Body: "updated"})
	if c.Slug != "novo-titulo" {
		t.Errorf("Expected slug regenerated, got %q", c.Slug)
	}
}

func TestInputValidate(t *testing.T) {
	if _, ok := (Input{Body: "x"}).Validate()["title"]; !ok {
		t.Error("Expected violation for missing title")
	}
	if _, ok := (Input{Title: "t"}).Validate()["content"]; !ok {
		t.Error("Expected violation for missing content")
	}
	if _, ok := (Input{Title: "t", Body: "b", Type: "podcast"}).Validate()["type"]; !ok {
		t.Error("Expected violation for unknown type")
	}
	if violations := (Input{Title: "t", Body: "b", Type: TypeGuide}).Validate(); len(violations) != 0 {
		t.Errorf("Expected valid input, got %v", violations)
	}
}
