// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/beevik/asm65/asm"
	"github.com/beevik/prefixtree/v2"
	"github.com/pkg/errors"
)

type settings struct {
	Overflow         string `toml:"overflow" doc:"overflow checking (none, unsigned, signed)"`
	InvalidOpcodes   bool   `toml:"invalid_opcodes" doc:"allow undocumented opcodes"`
	UndefinedSymbols bool   `toml:"undefined_symbols" doc:"evaluate undefined symbols as zero"`
	DebugLabels      bool   `toml:"debug_labels" doc:"write .mlb debug label files"`
	Verbose          bool   `toml:"verbose" doc:"log assembly progress"`
	ListLines        int    `toml:"list_lines" doc:"default number of lines to list"`
}

func newSettings() *settings {
	return &settings{
		Overflow:    "none",
		DebugLabels: true,
		ListLines:   20,
	}
}

type settingsField struct {
	name  string
	index int
	kind  reflect.Kind
	typ   reflect.Type
	doc   string
}

var (
	settingsTree   = prefixtree.New[*settingsField]()
	settingsFields []settingsField
)

func init() {
	settingsType := reflect.TypeOf(settings{})
	settingsFields = make([]settingsField, settingsType.NumField())
	for i := 0; i < len(settingsFields); i++ {
		f := settingsType.Field(i)
		doc, _ := f.Tag.Lookup("doc")
		settingsFields[i] = settingsField{
			name:  f.Name,
			index: i,
			kind:  f.Type.Kind(),
			typ:   f.Type,
			doc:   doc,
		}
		settingsTree.Add(strings.ToLower(f.Name), &settingsFields[i])
	}
}

// Load decodes a TOML configuration file over the current
// settings.
func (s *settings) Load(fs asm.FileSystem, path string) error {
	text, err := fs.ReadText(path)
	if err != nil {
		return err
	}

	next := *s
	md, err := toml.Decode(text, &next)
	if err != nil {
		return errors.Wrapf(err, "parsing '%s'", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return errors.Errorf("unknown setting '%s' in '%s'", undecoded[0], path)
	}
	if _, err := asm.ParseOverflowChecking(next.Overflow); err != nil {
		return errors.Wrapf(err, "in '%s'", path)
	}

	*s = next
	return nil
}

func (s *settings) Display(w io.Writer) {
	value := reflect.ValueOf(s).Elem()
	for i, f := range settingsFields {
		v := value.Field(i)
		var s string
		switch f.kind {
		case reflect.String:
			s = fmt.Sprintf("    %-16s \"%s\"", f.name, v.String())
		default:
			s = fmt.Sprintf("    %-16s %v", f.name, v)
		}
		fmt.Fprintf(w, "%-28s (%s)\n", s, f.doc)
	}
}

func (s *settings) Kind(key string) reflect.Kind {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return reflect.Invalid
	}
	return f.kind
}

// Name returns the full name of the setting matching a key prefix.
func (s *settings) Name(key string) string {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return key
	}
	return f.name
}

func (s *settings) Set(key string, value any) error {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return err
	}

	vIn := reflect.ValueOf(value)
	if (f.kind == reflect.String && vIn.Type().Kind() != reflect.String) ||
		(f.kind != reflect.String && vIn.Type().Kind() == reflect.String) ||
		!vIn.Type().ConvertibleTo(f.typ) {
		return errors.New("invalid type")
	}
	vInConverted := vIn.Convert(f.typ)

	vOut := reflect.ValueOf(s).Elem().Field(f.index).Addr().Elem()
	vOut.Set(vInConverted)

	return nil
}

// asmConfig builds an assembler configuration from the settings.
func (s *settings) asmConfig() (asm.Config, error) {
	overflow, err := asm.ParseOverflowChecking(s.Overflow)
	if err != nil {
		return asm.Config{}, err
	}
	return asm.Config{
		Overflow:              overflow,
		AllowInvalidOpcodes:   s.InvalidOpcodes,
		AllowUndefinedSymbols: s.UndefinedSymbols,
		Verbose:               s.Verbose,
	}, nil
}
