/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"os"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

func TestSavedProjectConformsToSchema(t *testing.T) {
	ph := newProject(t)
	ph.File.SetRecords(fixtureRecords(t))
	if err := Save(ph); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	data, err := os.ReadFile(ph.Path)
	if err != nil {
		t.Fatalf("read project: %v", err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(ProjectSchema()), gojsonschema.NewBytesLoader(data))
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("project does not conform to schema")
	}
}

func TestValidateProjectRejects(t *testing.T) {
	cases := map[string]string{
		"not json":      `{ nope`,
		"missing nodes": `{"param_ser": {"param": {}}}`,
		"unknown kind":  `{"param_ser": {"param": {}}, "sn_ser": [{"value": {"type": "Panel"}, "bt": "Child", "id": 1, "has_n_and_c": "None"}]}`,
		"bad role":      `{"param_ser": {"param": {}}, "sn_ser": [{"value": {"type": "Group"}, "bt": "Up", "id": 1, "has_n_and_c": "None"}]}`,
		"negative size": `{"param_ser": {"param": {"target_width": -1}}, "sn_ser": null}`,
	}
	for name, doc := range cases {
		err := ValidateProject([]byte(doc))
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		if !errors.Is(err, ErrInvalidProject) {
			t.Fatalf("%s: expected ErrInvalidProject, got %v", name, err)
		}
	}
}

func TestValidateProjectAcceptsLegacyShapes(t *testing.T) {
	doc := `{"param_ser": {"param": {}}, "sn_ser": [{"value": {"type": "Group"}, "bt": "Child", "id": 0, "has_n_and_c": "Leaf"}]}`
	if err := ValidateProject([]byte(doc)); err != nil {
		t.Fatalf("ValidateProject: %v", err)
	}
}
