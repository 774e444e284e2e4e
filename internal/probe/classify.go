// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package probe

// Classify derives the access level from probe outcomes. The highest tier
// whose minimum evidence holds wins; contradicting probes are ignored, so
// write-without-read is still NONE and update+delete without write is OWNER.
func Classify(o Outcomes) AccessLevel {
	switch {
	case o[CanUpdateDataset] && o[CanDeleteData]:
		return LevelOwner
	case o[CanWriteData] && o[CanCreateTable]:
		return LevelWriter
	case o[CanReadData]:
		return LevelReader
	default:
		return LevelNone
	}
}
