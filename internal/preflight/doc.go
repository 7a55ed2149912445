// Package preflight provides readiness checks for the filesystem paths the
// image pipeline and the catalog depend on.
//
// These checks run in two contexts:
//   - The pipeline job calls CheckDirectoryAccess on the images directory
//     before each run; a failure is a directory-level error and no file is
//     touched.
//   - The CLI "commissions db check" command prints RunAll results next to
//     the catalog health report.
package preflight
