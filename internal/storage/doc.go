// Package storage keeps the rendered day images on disk.
//
// Each day has at most one file, named YYYY_MM_DD.png, inside the temp
// directory. A file's existence is the only validity check: there is no TTL
// and no checksum. Files disappear only through Sweep (keep one day, delete
// the rest), Remove, or Clear.
// The default location is ~/.local/share/today-in-history/temp.
package storage
