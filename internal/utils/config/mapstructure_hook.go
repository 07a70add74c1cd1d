// Copyright 2023 Greenmask
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	gostr "github.com/xhit/go-str2duration/v2"
)

// DecodeHook - hooks used for decoding the config values received from viper
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		HumanDurationHookFunc(),
		StringToSliceWithBracketHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// HumanDurationHookFunc - decodes durations with days and weeks, for instance 1d12h or 1w
func HumanDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return time.Duration(0), nil
		}
		dur, err := gostr.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("cannot parse duration \"%s\": %w", raw, err)
		}
		return dur, nil
	}
}

// StringToSliceWithBracketHookFunc - decodes json array received from the env variables, for instance
// INSPECT_SCHEMAS='["public", "billing"]'. Other strings are left for the next hooks
func StringToSliceWithBracketHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Kind,
		t reflect.Kind,
		data interface{}) (interface{}, error) {
		if f != reflect.String || t != reflect.Slice {
			return data, nil
		}

		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []string{}, nil
		}
		if !strings.HasPrefix(raw, "[") {
			return data, nil
		}
		var strSlice []string
		if err := json.Unmarshal([]byte(raw), &strSlice); err != nil {
			return data, nil
		}
		return strSlice, nil
	}
}
