package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"golang.org/x/xerrors"
	"gopkg.in/urfave/cli.v1"

	"wsb.com/wledger/internals/client"
	"wsb.com/wledger/internals/config"
	"wsb.com/wledger/internals/helpers"
	"wsb.com/wledger/internals/node"
)

var nodeFlag = cli.StringFlag{
	Name:  "node, n",
	Value: fmt.Sprintf("%s:%d", config.DefaultHost, config.DefaultPort),
	Usage: "address of the node to talk to",
}

var cmds = cli.Commands{
	{
		Name:    "serve",
		Usage:   "Run a ledger node.",
		Aliases: []string{"s"},
		Action:  serve,
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "host",
				Usage: "interface to listen on",
			},
			cli.Int64Flag{
				Name:  "port, p",
				Usage: "port to listen on",
			},
			cli.IntFlag{
				Name:  "threads, t",
				Usage: "proof search workers",
			},
		},
	},
	{
		Name:    "chain",
		Usage:   "Show a node's chain and check its links and proofs.",
		Aliases: []string{"c"},
		Action:  showChain,
		Flags:   []cli.Flag{nodeFlag},
	},
	{
		Name:    "mine",
		Usage:   "Ask a node to forge the next block.",
		Aliases: []string{"m"},
		Action:  mineBlock,
		Flags:   []cli.Flag{nodeFlag},
	},
	{
		Name:      "tx",
		Usage:     "Submit a transaction to a node.",
		Aliases:   []string{"t"},
		ArgsUsage: "--sender S --recipient R --amount N",
		Action:    sendTransaction,
		Flags: []cli.Flag{
			nodeFlag,
			cli.StringFlag{Name: "sender"},
			cli.StringFlag{Name: "recipient"},
			cli.Float64Flag{Name: "amount"},
		},
	},
}

func showChain(c *cli.Context) error {
	resp, err := client.New(c.String("node")).GetChain(context.Background())
	if err != nil {
		return xerrors.Errorf("couldn't get chain: %w", err)
	}

	data := pterm.TableData{{"Index", "Timestamp", "Proof", "Txs", "Previous hash"}}
	for _, b := range resp.Chain {
		data = append(data, []string{
			strconv.FormatInt(b.Index, 10),
			formatTimestamp(b.Timestamp),
			strconv.FormatInt(b.Proof, 10),
			strconv.Itoa(len(b.Transactions)),
			b.PreviousHash,
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	pterm.Info.Printfln("Length: %d", resp.Length)

	if err := node.VerifyChain(resp.Chain); err != nil {
		pterm.Error.Printfln("Chain is invalid: %v", err)
		return nil
	}
	pterm.Success.Println("Chain is valid")
	return nil
}

func mineBlock(c *cli.Context) error {
	spinner, _ := pterm.DefaultSpinner.Start("Mining ...")
	resp, err := client.New(c.String("node")).Mine(context.Background())
	if err != nil {
		spinner.Fail(err.Error())
		return xerrors.Errorf("couldn't mine: %w", err)
	}
	spinner.Success(resp.Message)

	pterm.Info.Printfln("Index: %d", resp.Index)
	pterm.Info.Printfln("Proof: %d", resp.Proof)
	pterm.Info.Printfln("Previous hash: %s", resp.PreviousHash)
	return printTransactions(resp.Transactions)
}

func sendTransaction(c *cli.Context) error {
	if !c.IsSet("sender") || !c.IsSet("recipient") || !c.IsSet("amount") {
		return xerrors.New("please give the following flags: --sender, --recipient, --amount")
	}
	msg, err := client.New(c.String("node")).SendTransaction(context.Background(), helpers.Transaction{
		Sender:    c.String("sender"),
		Recipient: c.String("recipient"),
		Amount:    c.Float64("amount"),
	})
	if err != nil {
		return xerrors.Errorf("couldn't send transaction: %w", err)
	}
	pterm.Success.Println(msg)
	return nil
}

func printTransactions(txs []helpers.Transaction) error {
	data := pterm.TableData{{"Sender", "Recipient", "Amount"}}
	for _, tx := range txs {
		data = append(data, []string{tx.Sender, tx.Recipient, strconv.FormatFloat(tx.Amount, 'f', -1, 64)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func formatTimestamp(ts float64) string {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).Format("2006-01-02 15:04:05")
}
