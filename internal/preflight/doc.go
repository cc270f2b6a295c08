// Package preflight provides readiness checks for the directories, tools and
// classifier endpoint shelver depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll when monitoring starts and logs every
//     failure as a warning. Nothing here blocks startup; a missing review
//     folder is created on first use and the keyword fallback covers an
//     unreachable classifier.
//   - The CLI "shelver status" command shows the same results next to the
//     daemon's live state.
package preflight
