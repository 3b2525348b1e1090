/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package snapshot

import "time"

// FormatFilename returns YYYY-MM-DD_<device>_HH_MM.txt for t in local time.
func FormatFilename(device string, t time.Time) string {
	t = t.Local()

	return t.Format("2006-01-02") + "_" + device + "_" + t.Format("15_04") + ".txt"
}
