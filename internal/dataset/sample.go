/*
 * This file is part of AgriVoice ASR Bench (https://github.com/agrivoice/asr-bench).
 * Copyright (C) 2025 AgriVoice Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

package dataset

// SampleRows returns the built-in demo dataset so a tester can try the
// bench without preparing a CSV. The language hint is applied to every row.
func SampleRows(language string) []Row {
	return []Row{
		{SerialNumber: "1", CropCode: "RICE001", CropName: "Basmati Rice", Language: language, Project: "Sample"},
		{SerialNumber: "2", CropCode: "WHEAT001", CropName: "Wheat", Language: language, Project: "Sample"},
		{SerialNumber: "3", CropCode: "CORN001", CropName: "Corn", Language: language, Project: "Sample"},
	}
}
