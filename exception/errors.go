// Copyright 2024-2025 NetCracker Technology Corporation
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

package exception

import (
	"errors"
	"fmt"
	"strings"
)

type CustomError struct {
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Debug   string                 `json:"debug,omitempty"`
	// Raw holds the offending model output for parse and grade errors.
	Raw   string `json:"raw,omitempty"`
	Cause error  `json:"-"`
}

func (c CustomError) Error() string {
	msg := c.Message
	for k, v := range c.Params {
		//todo make smart replace (e.g. now it replaces $grade if we have $gradeRaw in params)
		msg = strings.ReplaceAll(msg, "$"+k, fmt.Sprintf("%v", v))
	}
	return msg
}

func (c CustomError) Unwrap() error {
	return c.Cause
}

// HasCode reports whether any CustomError in the chain of err carries code.
func HasCode(err error, code string) bool {
	var customErr *CustomError
	for err != nil {
		if !errors.As(err, &customErr) {
			return false
		}
		if customErr.Code == code {
			return true
		}
		err = customErr.Cause
	}
	return false
}

const MissingCredential = "100"
const MissingCredentialMsg = "No API key configured for backend $backend. Set OPENAI_API_KEY or pass --api-key"

const BackendError = "200"
const BackendErrorMsg = "Backend $backend failed during the $pass pass: $error"

const MalformedResponse = "300"
const MalformedResponseMsg = "Examiner returned an unusable verdict: $reason"

const UnknownGrade = "310"
const UnknownGradeMsg = "Examiner returned unknown grade '$grade'"

const TemplateUnavailable = "400"
const TemplateUnavailableMsg = "Prompt template $template is unavailable"

const Cancelled = "500"
const CancelledMsg = "Judgement cancelled during the $pass pass"

const UnknownBackend = "600"
const UnknownBackendMsg = "Backend '$backend' is not supported"

const ConfigUnreadable = "700"
const ConfigUnreadableMsg = "Failed to read config file $path"

const SourceNotFound = "1000"
const SourceNotFoundMsg = "no such file: '$path'"

const SourceNotAFile = "1001"
const SourceNotAFileMsg = "'$path' is not a file"

const SourceUnreadable = "1002"
const SourceUnreadableMsg = "cannot read '$path'"

const SourceEmpty = "1003"
const SourceEmptyMsg = "'$path' is empty"
