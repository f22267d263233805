// SPDX-License-Identifier: MPL-2.0

// Package modsource abstracts where a mod's files live. A mod is either a
// plain directory tree or a single .modpak archive; both expose the same
// read, enumerate and manifest operations through Source.
package modsource
