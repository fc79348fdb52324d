package personality

import "testing"

func TestResolveKnownNames(t *testing.T) {
	for _, name := range []string{"Friendly", "Funny", "Professional", "Supportive"} {
		if got := Resolve(name); string(got) != name {
			t.Fatalf("Resolve(%q) = %q", name, got)
		}
	}
}

func TestResolveUnknownFallsBackToFriendly(t *testing.T) {
	for _, name := range []string{"", "Zebra", "friendly", "FUNNY", " Supportive", "Professional\n"} {
		if got := Resolve(name); got != Friendly {
			t.Fatalf("Resolve(%q) = %q, want Friendly", name, got)
		}
	}
}

func TestInstructionIsTotal(t *testing.T) {
	for _, opt := range All() {
		if Instruction(opt.Value) == "" {
			t.Fatalf("missing instruction for %s", opt.Value)
		}
	}
	if Instruction(Personality("Zebra")) != Instruction(Friendly) {
		t.Fatal("unknown personality should use the Friendly instruction")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	first := All()
	first[0].Label = "mutated"
	if All()[0].Label != "Friendly" {
		t.Fatal("All should not expose the backing slice")
	}
	if len(first) != 4 {
		t.Fatalf("expected 4 personalities, got %d", len(first))
	}
}

func TestValidMatchesCatalog(t *testing.T) {
	for _, opt := range All() {
		if !opt.Value.Valid() {
			t.Fatalf("catalog entry %q reported invalid", opt.Value)
		}
	}
	if Personality("Zebra").Valid() || Personality("friendly").Valid() {
		t.Fatalf("values outside the catalog must be invalid")
	}
}
