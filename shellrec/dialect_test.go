package shellrec

import (
	"errors"
	"testing"
)

func TestGet_KnownDialects(t *testing.T) {
	for _, name := range []string{"bash", "tcsh", "elisp"} {
		d, err := Get(name)
		if err != nil {
			t.Fatalf("Get(%q) error = %v, want nil", name, err)
		}
		if d.Name() != name {
			t.Errorf("Get(%q).Name() = %q, want %q", name, d.Name(), name)
		}
	}
}

func TestGet_Unknown(t *testing.T) {
	d, err := Get("fish")
	if d != nil {
		t.Error("Get(\"fish\") should return nil dialect")
	}
	var unknownErr *ErrUnknownDialect
	if !errors.As(err, &unknownErr) {
		t.Errorf("error type = %T, want *ErrUnknownDialect", err)
	}
	if unknownErr.Name != "fish" {
		t.Errorf("ErrUnknownDialect.Name = %q, want %q", unknownErr.Name, "fish")
	}
}

func TestRegister_Duplicate(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Register() with duplicate name should panic")
		}
	}()
	Register("bash", bashDialect{})
}

func TestBashDialect_Syntax(t *testing.T) {
	d := bashDialect{}
	if got, want := d.SetEnv("PATH", "/opt/vim/bin"), "export PATH='/opt/vim/bin'"; got != want {
		t.Errorf("SetEnv = %q, want %q", got, want)
	}
	if got, want := d.UnsetEnv("PATH"), "unset PATH"; got != want {
		t.Errorf("UnsetEnv = %q, want %q", got, want)
	}
	if got, want := d.SetAlias("vi", "vim"), "alias vi='vim'"; got != want {
		t.Errorf("SetAlias = %q, want %q", got, want)
	}
	if got, want := d.UnsetAlias("vi"), "unalias vi"; got != want {
		t.Errorf("UnsetAlias = %q, want %q", got, want)
	}
}

func TestTcshDialect_Syntax(t *testing.T) {
	d := tcshDialect{}
	if got, want := d.SetEnv("PATH", "/opt/vim/bin"), "setenv PATH '/opt/vim/bin'"; got != want {
		t.Errorf("SetEnv = %q, want %q", got, want)
	}
	if got, want := d.SetAlias("vi", "vim"), "alias vi 'vim'"; got != want {
		t.Errorf("SetAlias = %q, want %q", got, want)
	}
}

func TestElispDialect_NoAliasOrShellVar(t *testing.T) {
	d := elispDialect{}
	if got := d.SetAlias("vi", "vim"); got != "" {
		t.Errorf("SetAlias = %q, want empty", got)
	}
	if got := d.SetShellVar("_LOADED", "1"); got != "" {
		t.Errorf("SetShellVar = %q, want empty", got)
	}
	if got, want := d.SetEnv("VIM_HOME", "/opt/vim"), `(setenv "VIM_HOME" "/opt/vim")`; got != want {
		t.Errorf("SetEnv = %q, want %q", got, want)
	}
}

func TestElispDialect_Messages(t *testing.T) {
	d := elispDialect{}
	lines := []string{"Loaded vim 9.1", "from /opt/vim"}

	got := d.Messages(lines, false)
	want := `(message "Loaded vim 9.1\nfrom /opt/vim")`
	if len(got) != 1 || got[0] != want {
		t.Errorf("Messages(raw=false) = %v, want [%q]", got, want)
	}

	got = d.Messages(lines, true)
	want = "Loaded vim 9.1\nfrom /opt/vim"
	if len(got) != 1 || got[0] != want {
		t.Errorf("Messages(raw=true) = %v, want [%q]", got, want)
	}
}

func TestElispDialect_MessagesEmpty(t *testing.T) {
	d := elispDialect{}
	if got := d.Messages(nil, false); got != nil {
		t.Errorf("Messages(nil) = %v, want nil", got)
	}
}
