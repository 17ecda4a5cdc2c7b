package engine

import (
	"errors"
	"testing"
)

func TestFactoryCreateExplicitTypes(t *testing.T) {
	factory := NewFactory()

	eng, err := factory.CreateEngine("malgo", Options{})
	if err != nil {
		t.Fatalf("malgo creation failed: %v", err)
	}
	if _, ok := eng.(*MalgoEngine); !ok {
		t.Errorf("expected *MalgoEngine, got %T", eng)
	}

	eng, err = factory.CreateEngine("oto", Options{})
	if err != nil {
		t.Fatalf("oto creation failed: %v", err)
	}
	if _, ok := eng.(*OtoEngine); !ok {
		t.Errorf("expected *OtoEngine, got %T", eng)
	}
}

func TestFactoryCreateSystemCommand(t *testing.T) {
	withPlayers := NewFactoryWithDependencies(
		func() bool { return false },
		func(cmd string) bool { return cmd == "paplay" },
	)

	eng, err := withPlayers.CreateEngine("system_command", Options{})
	if err != nil {
		t.Fatalf("system_command creation failed: %v", err)
	}
	if _, ok := eng.(*CommandEngine); !ok {
		t.Errorf("expected *CommandEngine, got %T", eng)
	}

	withoutPlayers := NewFactoryWithDependencies(
		func() bool { return false },
		func(string) bool { return false },
	)
	if _, err := withoutPlayers.CreateEngine("system_command", Options{}); !errors.Is(err, ErrEngineNotAvailable) {
		t.Errorf("expected ErrEngineNotAvailable, got %v", err)
	}
}

func TestFactoryAutoDetection(t *testing.T) {
	native := NewFactoryWithDependencies(
		func() bool { return false },
		func(string) bool { return true },
	)
	eng, err := native.CreateEngine("auto", Options{})
	if err != nil {
		t.Fatalf("auto creation failed: %v", err)
	}
	if _, ok := eng.(*MalgoEngine); !ok {
		t.Errorf("native auto-detect should pick malgo, got %T", eng)
	}

	wsl := NewFactoryWithDependencies(
		func() bool { return true },
		func(cmd string) bool { return cmd == "ffplay" },
	)
	eng, err = wsl.CreateEngine("auto", Options{})
	if err != nil {
		t.Fatalf("WSL auto creation failed: %v", err)
	}
	if _, ok := eng.(*CommandEngine); !ok {
		t.Errorf("WSL auto-detect should pick system command, got %T", eng)
	}
}

func TestFactoryEmptyTypeMeansAuto(t *testing.T) {
	factory := NewFactoryWithDependencies(
		func() bool { return false },
		func(string) bool { return false },
	)
	eng, err := factory.CreateEngine("", Options{})
	if err != nil {
		t.Fatalf("empty type creation failed: %v", err)
	}
	if _, ok := eng.(*MalgoEngine); !ok {
		t.Errorf("empty type should resolve to the auto default, got %T", eng)
	}
}

func TestFactoryRejectsUnknownType(t *testing.T) {
	factory := NewFactory()

	if _, err := factory.CreateEngine("directsound", Options{}); !errors.Is(err, ErrInvalidEngineType) {
		t.Errorf("expected ErrInvalidEngineType, got %v", err)
	}
}

func TestFactoryTypeValidation(t *testing.T) {
	factory := NewFactory()

	for _, valid := range []string{"", "auto", "malgo", "oto", "system_command"} {
		if !factory.IsValidEngineType(valid) {
			t.Errorf("expected %q to be valid", valid)
		}
	}
	if factory.IsValidEngineType("directsound") {
		t.Error("expected directsound to be invalid")
	}

	engines := factory.SupportedEngines()
	if len(engines) != 4 {
		t.Errorf("expected 4 supported engines, got %v", engines)
	}
}
