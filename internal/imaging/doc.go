// Package imaging turns uploaded raster images into durable JPEG masters and
// WEBP delivery derivatives.
//
// A run has three stages. Scan lists the source directory and keeps .jpg and
// .png files. Converter.ConvertOne handles one file: a pending PNG is promoted
// to a JPEG master and deleted, and a JPEG master gets a fresh WEBP derivative
// when the existing one is missing or older. Pipeline.Run fans ConvertOne out
// over a bounded worker pool and folds the per-file outcomes into a
// BatchReport.
//
// Freshness is decided by modification time only. A file whose content
// changes without its mtime moving forward is not reconverted.
//
// A failure converting one file is recorded in the report and never aborts
// the batch. Run returns an error only when the source directory cannot be
// listed or the derivative directory cannot be created.
package imaging
