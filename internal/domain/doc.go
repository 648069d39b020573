// Package domain models USGS earthquake summary feed data.
//
// # Data Source
//
// Events come from the USGS GeoJSON summary feeds, published at
// https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/. Each feed is
// addressed by a severity class and a time period:
//
//	{severity}_{period}.geojson  →  e.g. "significant_month.geojson"
//
// Severity classes: significant, 4.5, 2.5, 1.0, all.
// Periods: hour, day, week, month.
//
// # Feed Document
//
// A feed is a GeoJSON FeatureCollection. Each feature carries an "id", a
// "properties" object (mag, place, time, tsunami, url, title, ...) and a
// Point "geometry" whose coordinates are [longitude, latitude, depth]:
//
//	longitude, latitude: decimal degrees (WGS-84)
//	depth: kilometres below the surface, positive down
//
// Times are milliseconds since the Unix epoch, UTC.
//
// # Normalization
//
// [Normalize] flattens every feature into a [SeismicRecord]. The first two
// coordinates become [SeismicRecord.Coordinates]; the third becomes
// [SeismicRecord.Depth] and is never part of the coordinate pair. A feature
// without depth normalizes to depth 0.
//
// Required fields are id, properties.time and the longitude/latitude pair.
// A single feature missing any of them rejects the whole batch with a
// [MalformedRecordError]; partial batches are never returned. Missing mag,
// place, url and tsunami fall back to zero values.
//
// # Caching
//
// A [CacheEntry] pairs a normalized batch with its fetch time. It is fresh
// while now - fetchedAt < TTL and only for the selector it was fetched with.
package domain
