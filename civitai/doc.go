// Package civitai provides a client for the Civitai public media API.
//
// The client issues one request per page against the images endpoint and
// normalizes the response into MediaItem records plus a continuation cursor.
//
// # Usage
//
//	logger := zerolog.New(os.Stdout)
//	client, err := civitai.NewClient(
//		"https://civitai.com/api/v1",
//		logger,
//		civitai.WithTimeout(30*time.Second),
//		civitai.WithPageSize(100),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := client.FetchMedia(ctx, civitai.Request{
//		Sort:   civitai.SortMostReactions,
//		Period: civitai.PeriodWeek,
//	})
//
// # Error Handling
//
// FetchMedia never returns partial data. Any transport, status or decode
// failure yields an empty Result with HasMore false together with an error
// wrapping ErrFetchFailed. Callers that only care about data can ignore the
// error; the Result is always safe to use.
//
// Non-2xx responses additionally carry an *APIError in the chain:
//
//	var apiErr *civitai.APIError
//	if errors.As(err, &apiErr) && apiErr.IsRateLimited() {
//		// back off
//	}
package civitai
