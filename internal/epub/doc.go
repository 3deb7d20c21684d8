// Package epub reads the structure of an EPUB container: the ZIP archive,
// container.xml, the package document (metadata, manifest, spine) and the
// table of contents in either NCX or nav form.
//
// Every step after opening the archive degrades instead of failing: callers
// receive a usable value together with the errors that were recovered.
package epub
