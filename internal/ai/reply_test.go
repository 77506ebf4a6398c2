package ai

import (
	"errors"
	"reflect"
	"testing"

	"chefshelf/models"
)

const plainReply = `{"recipes":[{"lesson_name":"Aula 3","title":"Bolo de Cenoura","ingredients":[{"sectionName":"Massa","items":[{"name":"Farinha","qty":"25","unit":"G"}]}],"steps":["Misture","Asse"]}]}`

func TestParseReplyFencedMatchesPlain(t *testing.T) {
	plain, err := ParseReply(plainReply)
	if err != nil {
		t.Fatalf("plain reply: %v", err)
	}

	fenced, err := ParseReply("Here you go:\n```json\n" + plainReply + "\n```\n")
	if err != nil {
		t.Fatalf("fenced reply: %v", err)
	}

	if !reflect.DeepEqual(plain, fenced) {
		t.Fatalf("fenced reply differs:\nplain:  %+v\nfenced: %+v", plain, fenced)
	}
	if len(plain) != 1 || plain[0].Title != "Bolo de Cenoura" {
		t.Fatalf("unexpected recipes: %+v", plain)
	}
}

func TestParseReplyVariants(t *testing.T) {
	cases := []struct {
		name   string
		reply  string
		titles []string
	}{
		{"bare fence", "```\n" + plainReply + "\n```", []string{"Bolo de Cenoura"}},
		{"surrounding prose", "Sure! " + plainReply + " Anything else?", []string{"Bolo de Cenoura"}},
		{"top level array", `[{"title":"Pudim"},{"title":"Quindim"}]`, []string{"Pudim", "Quindim"}},
		{"single recipe object", `{"title":"Brigadeiro","steps":["Mexa"]}`, []string{"Brigadeiro"}},
		{"null recipes", `{"recipes":null}`, nil},
		{"no recipes key", `{"note":"nothing here"}`, nil},
		{"blank reply", "   ", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recipes, err := ParseReply(tc.reply)
			if err != nil {
				t.Fatalf("ParseReply: %v", err)
			}
			if recipes == nil {
				t.Fatalf("recipes must never be nil")
			}
			var titles []string
			for _, r := range recipes {
				titles = append(titles, r.Title)
			}
			if !reflect.DeepEqual(titles, tc.titles) {
				t.Fatalf("titles = %v, want %v", titles, tc.titles)
			}
		})
	}
}

func TestParseReplyMalformed(t *testing.T) {
	for _, reply := range []string{
		"I could not find any recipe.",
		`{"recipes": [ {"title": "Bolo"`,
		`{"recipes": "Bolo"}`,
		`"just a string"`,
	} {
		recipes, err := ParseReply(reply)
		if !errors.Is(err, models.ErrMalformedReply) {
			t.Fatalf("ParseReply(%q) error = %v, want ErrMalformedReply", reply, err)
		}
		if len(recipes) != 0 {
			t.Fatalf("malformed reply produced recipes: %+v", recipes)
		}
	}
}

func TestParseReplyNormalizes(t *testing.T) {
	reply := `{"recipes":[{"title":"","ingredients":[{"items":[{"name":"Ovos","qty":3,"unit":null}]},{"name":"Sal","qty":"a gosto"}]}]}`

	recipes, err := ParseReply(reply)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	if len(recipes) != 1 {
		t.Fatalf("expected 1 recipe, got %d", len(recipes))
	}

	r := recipes[0]
	if r.Title != models.UntitledRecipe {
		t.Fatalf("title = %q, want %q", r.Title, models.UntitledRecipe)
	}
	if r.Steps == nil || len(r.Steps) != 0 {
		t.Fatalf("steps should be an empty slice, got %#v", r.Steps)
	}
	if len(r.Ingredients) != 2 {
		t.Fatalf("expected a loose section plus the listed one, got %+v", r.Ingredients)
	}
	for _, section := range r.Ingredients {
		if section.SectionName != models.DefaultSectionName {
			t.Fatalf("section name = %q, want default", section.SectionName)
		}
	}

	want := models.Ingredient{Name: "Ovos", Qty: "3", Unit: ""}
	if got := r.Ingredients[1].Items[0]; got != want {
		t.Fatalf("ingredient = %+v, want %+v", got, want)
	}
	if got := r.Ingredients[0].Items[0]; got.Name != "Sal" || got.Qty != "a gosto" {
		t.Fatalf("loose ingredient = %+v", got)
	}
}

func TestScalarString(t *testing.T) {
	cases := map[any]string{
		25.0:  "25",
		0.5:   "0.5",
		true:  "true",
		" 2 ": "2",
		nil:   "",
	}
	for in, want := range cases {
		if got := scalarString(in); got != want {
			t.Fatalf("scalarString(%v) = %q, want %q", in, got, want)
		}
	}
}
