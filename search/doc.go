// Copyright 2025 Poiesic Systems
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


// Package search answers operation breakdown similarity queries.
//
// A Searcher ties the pieces of a request together:
//   - fetches the tenant's corpus for a style type, or groups a caller
//     supplied dataset
//   - ranks every breakdown against the normalized query
//   - keeps the top results and optionally attaches line allocations
//
// Allocation lookups are best effort. When they fail the results are still
// returned and the response reports that no allocation data is attached.
package search
