package wrt

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	param "github.com/TermGraph/dygparam"
	"github.com/TermGraph/syslog/internal/wrt/dbuf"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	cwlogs "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// Client is the subset of the CloudWatch Logs API used by the writer.
type Client interface {
	CreateLogStream(ctx context.Context, params *cwlogs.CreateLogStreamInput, optFns ...func(*cwlogs.Options)) (*cwlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cwlogs.PutLogEventsInput, optFns ...func(*cwlogs.Options)) (*cwlogs.PutLogEventsOutput, error)
}

// CWLog is an io.Writer that ships each write as a log event to CloudWatch
// Logs. Events are double buffered: one buffer fills while the other uploads.
type CWLog struct {
	client    Client
	logGroup  string
	logStream string
	loadSize  int
	interval  time.Duration
	// errW receives upload errors, as the log itself may be unavailable
	errW io.Writer

	logCh chan *types.InputLogEvent
	// uploadCh holds a single token and serialises upload()
	uploadCh chan struct{}
	seqToken *string

	cancel   context.CancelFunc
	wgEnd    sync.WaitGroup
	stopOnce sync.Once
}

// NewCWLog creates a log stream in logGroup using the default AWS config
// and starts the upload service.
func NewCWLog(ctx context.Context, logGroup, logStream string) (*CWLog, error) {

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return StartCWLog(ctx, cwlogs.NewFromConfig(cfg), logGroup, logStream, param.CWLogLoadSize, 2*time.Second)
}

func StartCWLog(ctx context.Context, client Client, logGroup, logStream string, loadSize int, interval time.Duration) (*CWLog, error) {

	_, err := client.CreateLogStream(ctx, &cwlogs.CreateLogStreamInput{LogGroupName: aws.String(logGroup), LogStreamName: aws.String(logStream)})
	if err != nil {
		return nil, fmt.Errorf("create log stream %s: %w", logStream, err)
	}

	w := &CWLog{
		client:    client,
		logGroup:  logGroup,
		logStream: logStream,
		loadSize:  loadSize,
		interval:  interval,
		errW:      os.Stderr,
		logCh:     make(chan *types.InputLogEvent, param.LogChBufSize),
		uploadCh:  make(chan struct{}, 1),
	}
	// initialise channel
	w.uploadCh <- struct{}{}

	var wgStart sync.WaitGroup
	ctx, w.cancel = context.WithCancel(context.Background())
	wgStart.Add(1)
	w.wgEnd.Add(1)

	go w.powerOn(ctx, &wgStart)

	wgStart.Wait()

	return w, nil
}

// Write implements io.Writer
func (w *CWLog) Write(p []byte) (int, error) {

	s := string(p)
	t := time.Now().UnixMilli()

	w.logCh <- &types.InputLogEvent{Message: &s, Timestamp: &t}

	return len(p), nil
}

// Stop flushes buffered events and waits for the last upload to complete.
func (w *CWLog) Stop() {
	w.stopOnce.Do(func() {
		// an event with no message is the end-of-data marker
		w.logCh <- &types.InputLogEvent{}
		w.wgEnd.Wait()
		w.cancel()
	})
}

// upload to Cloudwatch logs using PutLogEvents(). Must hold the uploadCh token,
// which is returned on completion.
func (w *CWLog) upload(b []types.InputLogEvent) {

	defer func() { w.uploadCh <- struct{}{} }()

	plei := &cwlogs.PutLogEventsInput{LogEvents: b, LogGroupName: aws.String(w.logGroup), LogStreamName: aws.String(w.logStream), SequenceToken: w.seqToken}

	pleo, err := w.client.PutLogEvents(context.Background(), plei)
	if err != nil {
		fmt.Fprintf(w.errW, "Error in PutLogEvents of CloudWatch Logs: %s\n", err)
		return
	}

	if v := pleo.RejectedLogEventsInfo; v != nil {
		if v.ExpiredLogEventEndIndex != nil {
			fmt.Fprintf(w.errW, "Rejected: ExpiredLogEventEndIndex %d\n", *v.ExpiredLogEventEndIndex)
		}
		if v.TooNewLogEventStartIndex != nil {
			fmt.Fprintf(w.errW, "Rejected: TooNewLogEventStartIndex %d\n", *v.TooNewLogEventStartIndex)
		}
		if v.TooOldLogEventEndIndex != nil {
			fmt.Fprintf(w.errW, "Rejected: TooOldLogEventEndIndex %d\n", *v.TooOldLogEventEndIndex)
		}
	}
	w.seqToken = pleo.NextSequenceToken
}

func (w *CWLog) powerOn(ctx context.Context, wgStart *sync.WaitGroup) {

	defer w.wgEnd.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	lastUpload := time.Now()
	evBuf := dbuf.New(w.loadSize)

	wgStart.Done()

	for {

		select {

		case ie := <-w.logCh:

			if ie.Message == nil {
				// end-of-data: wait for any running upload then flush
				<-w.uploadCh
				if evBuf.WriteBuf() > 0 {
					evBuf.Swap()
					w.upload(evBuf.Read())
				} else {
					w.uploadCh <- struct{}{}
				}
				return
			}

			if evBuf.Write(ie) == evBuf.Cap() {
				// wait for the previous upload to release the read buffer
				<-w.uploadCh
				evBuf.Swap()
				lastUpload = time.Now()

				go w.upload(evBuf.Read())
			}

		case <-ticker.C:

			if time.Since(lastUpload) >= w.interval && evBuf.WriteBuf() > 0 {

				<-w.uploadCh
				evBuf.Swap()
				lastUpload = time.Now()

				go w.upload(evBuf.Read())
			}

		case <-ctx.Done():
			return
		}
	}
}
