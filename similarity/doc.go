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


// Package similarity scores one operation breakdown against another.
//
// Operation names are compared with the mean of five fuzzy string metrics:
//   - Ratio: normalized InDel similarity of the whole strings
//   - PartialRatio: best Ratio of the shorter string against any equally
//     long window of the longer one
//   - TokenSortRatio: Ratio after sorting words
//   - TokenSetRatio: Ratio over the shared and differing word sets
//   - WRatio: a weighted composite that picks the best of the above
//
// Machine names are compared exactly (100 or 0) after case folding and
// whitespace collapsing.
//
// Score uses best-match search: every query operation is compared against
// every reference operation and keeps its maximum text similarity and,
// independently, its maximum machine match. The per-operation maxima are then
// averaged over the query.
package similarity
