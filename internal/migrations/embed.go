// Copyright 2025 Tom Barlow
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

// Package migrations holds the schema and PL/pgSQL coordination-primitive
// migrations, applied via goose. Embedding them means a worker binary can
// run `migrate up` on startup without shipping a separate migrations
// directory alongside it.
package migrations

import "embed"

// FS embeds every .sql migration file in this package.
//
//go:embed *.sql
var FS embed.FS
