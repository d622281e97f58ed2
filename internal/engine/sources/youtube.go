package sources

// YouTube transcript acquisition is split across files by responsibility:
//   youtube_client.go    : YouTube client, endpoints, caption payload download
//   youtube_session.go   : watch page session (cookies, innertube key, visitor token)
//   youtube_innertube.go : innertube client profiles, wire types, and the /player call
//   youtube_strategies.go: the built-in acquisition strategies
//   youtube_external.go  : optional third-party caption API with job polling
//   youtube_transcript.go: the strategy chain
//   youtube_captions.go  : timedtext / srv3 / json3 payload parsers
//   youtube_tracks.go    : caption track selection
//   youtube_metadata.go  : video title (oEmbed, og:title)
