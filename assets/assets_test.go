package assets

import "testing"

func TestGetCatalog(t *testing.T) {
	c := GetCatalog()

	n, ok := c.Lookup("ar.alafasy")
	if !ok {
		t.Fatal("ar.alafasy should be in the embedded catalog")
	}
	if !n.SupportsTiming() {
		t.Error("ar.alafasy should support chapter timing")
	}
	if c.SupportsTiming("ar.minshawi") {
		t.Error("ar.minshawi should not support chapter timing")
	}
	if c.SupportsTiming("xx.unknown") {
		t.Error("unknown narrators should not support chapter timing")
	}
}

func TestNewCatalogSkipsDuplicates(t *testing.T) {
	c := NewCatalog([]Narrator{
		{ID: "a", Name: "first"},
		{ID: "b", Name: "second", TimingID: 4},
		{ID: "a", Name: "again"},
	})

	all := c.All()
	if len(all) != 2 {
		t.Fatalf("len(All()) = %d, want 2", len(all))
	}
	if all[0].Name != "first" {
		t.Errorf("All()[0].Name = %q, want first", all[0].Name)
	}
	if !c.SupportsTiming("b") {
		t.Error("b should support timing")
	}
}
